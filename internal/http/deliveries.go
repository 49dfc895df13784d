package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/money"
	"github.com/nurpe/delivery-billing/internal/service"
)

type deliveryRequest struct {
	ShopID       string       `json:"shop_id"`
	ClientID     string       `json:"client_id"`
	DeliveryDate string       `json:"delivery_date" binding:"required"`
	Bags         int          `json:"bags"`
	OrderAmount  *money.Money `json:"order_amount"`
	IsCMS        bool         `json:"is_cms"`
}

// bindDelivery parses the request body. Missing ids stay nil and are left to
// the service to reject.
func bindDelivery(c *gin.Context, principal model.Principal) (service.DeliveryInput, bool) {
	var req deliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return service.DeliveryInput{}, false
	}
	shopID, err := parseOptionalUUID(req.ShopID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shop_id"})
		return service.DeliveryInput{}, false
	}
	clientID, err := parseOptionalUUID(req.ClientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client_id"})
		return service.DeliveryInput{}, false
	}
	date, err := parseDate(req.DeliveryDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delivery_date"})
		return service.DeliveryInput{}, false
	}

	in := service.DeliveryInput{
		DeliveryDate: date,
		Bags:         req.Bags,
		OrderAmount:  req.OrderAmount,
		IsCMS:        req.IsCMS,
		Principal:    principal,
	}
	if shopID != nil {
		in.ShopID = *shopID
	} else if principal.IsShop() {
		in.ShopID = principal.OrgID
	}
	if clientID != nil {
		in.ClientID = *clientID
	}
	return in, true
}

func (h *Handler) previewPrice(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	in, ok := bindDelivery(c, principal)
	if !ok {
		return
	}

	priced, err := h.deliveries.PreviewPrice(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPriceResponse(*priced))
}

func (h *Handler) createDelivery(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	in, ok := bindDelivery(c, principal)
	if !ok {
		return
	}

	d, err := h.deliveries.Create(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDeliveryResponse(*d))
}

func (h *Handler) getDelivery(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	d, err := h.deliveries.Get(c.Request.Context(), id, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDeliveryResponse(*d))
}

func (h *Handler) updateDelivery(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	in, ok := bindDelivery(c, principal)
	if !ok {
		return
	}

	d, err := h.deliveries.Update(c.Request.Context(), id, in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDeliveryResponse(*d))
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) updateDeliveryStatus(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := model.DeliveryStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	d, err := h.deliveries.UpdateStatus(c.Request.Context(), id, status, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDeliveryResponse(*d))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelDelivery(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req cancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	d, err := h.deliveries.Cancel(c.Request.Context(), service.CancelInput{
		DeliveryID: id,
		Reason:     strings.TrimSpace(req.Reason),
		Principal:  principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDeliveryResponse(*d))
}
