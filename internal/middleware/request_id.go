package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader est l'en-tête portant l'identifiant de requête.
const RequestIDHeader = "X-Request-ID"

// RequestID réutilise l'identifiant fourni par le client ou en génère un nouveau,
// le stocke dans le contexte Gin sous la clé "request_id" et le renvoie dans la réponse.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
