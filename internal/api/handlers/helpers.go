package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"biztech/api/internal/apperr"
	"biztech/api/internal/utils"
)

// respondOK writes the success envelope.
func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondError writes the failure envelope with the HTTP status implied by
// the error kind. Unclassified errors are logged and surfaced as opaque 500s.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindAuthentication:
		status = http.StatusUnauthorized
	case apperr.KindAuthorization:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindUpstream:
		status = http.StatusBadGateway
	default:
		log.Printf("ERROR: unhandled error on %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"success": false, "message": apperr.MessageOf(err)})
}

// pathID parses the :id path parameter.
func pathID(c *gin.Context, name string) (utils.SixID, bool) {
	id, err := utils.ParseSixID(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid ID format"})
		return utils.SixID{}, false
	}
	return id, true
}
