package api

import (
	"net/http"

	"github.com/els0r/geoherd/pkg/version"
	"github.com/gin-gonic/gin"
)

// ServiceInfo summarizes the running service's name, version, and commit
type ServiceInfo struct {
	// Name: service name
	Name string `json:"name"`
	// Version: (semantic) version and commit short
	Version string `json:"version"`
	// Commit: full git commit SHA
	Commit string `json:"commit,omitempty"`
}

// ServiceInfoHandler returns a handler that returns the service name, version, and commit
func ServiceInfoHandler(serviceName string) gin.HandlerFunc {
	info := &ServiceInfo{
		Name:    serviceName,
		Version: version.Short(),
		Commit:  version.GitSHA,
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, info)
	}
}

// HealthHandler returns a handler that returns a 200 OK response if the server is healthy
func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, "healthy")
	}
}

// ReadyHandler returns a handler that returns a 200 OK response if the server is ready
func ReadyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, "ready")
	}
}
