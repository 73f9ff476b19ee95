package httpkit

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the caller behind an authenticated admin request.
type Identity struct {
	userID uuid.UUID
}

func (i Identity) UserID() uuid.UUID { return i.userID }

// GetIdentity reads the identity AuthRequired stored on c. Outside an
// authenticated group it returns the zero Identity.
func GetIdentity(c *gin.Context) Identity {
	var id Identity
	if v, ok := c.Get(ContextUserIDKey); ok {
		id.userID, _ = v.(uuid.UUID)
	}
	return id
}
