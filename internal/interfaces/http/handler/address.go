package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/yazilimxyz/marketplace/internal/application/identity"
)

// AddressHandler lets customers manage their shipping addresses
type AddressHandler struct {
	BaseHandler
	addressBook *identityapp.AddressBook
}

// NewAddressHandler creates a new AddressHandler
func NewAddressHandler(addressBook *identityapp.AddressBook) *AddressHandler {
	return &AddressHandler{addressBook: addressBook}
}

// AddAddressRequest is the body of POST /addresses
type AddAddressRequest struct {
	Line    string `json:"line" binding:"required,max=255"`
	City    string `json:"city" binding:"required,max=100"`
	Country string `json:"country" binding:"required,len=2"`
	Zone    string `json:"zone" binding:"omitempty,max=50"`
}

// AddressResponse represents a shipping address in API responses
type AddressResponse struct {
	ID      uuid.UUID `json:"id"`
	Line    string    `json:"line"`
	City    string    `json:"city"`
	Country string    `json:"country"`
	Zone    string    `json:"zone"`
}

// AddAddress handles POST /addresses
func (h *AddressHandler) AddAddress(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	var req AddAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	addr, err := h.addressBook.AddAddress(c.Request.Context(), caller.UserID, req.Line, req.City, req.Country, req.Zone)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, AddressResponse{
		ID:      addr.ID,
		Line:    addr.Line,
		City:    addr.City,
		Country: addr.Country,
		Zone:    addr.Zone,
	})
}
