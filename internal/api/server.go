// Package api handles HTTP and WebSocket API endpoints
package api

import (
	"bytes"
	"encoding/json"
	"image"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/thereceipt/escpos-driver/internal/layout"
	"github.com/thereceipt/escpos-driver/internal/preview"
	"github.com/thereceipt/escpos-driver/internal/registry"
	"github.com/thereceipt/escpos-driver/internal/status"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// Dispatcher accepts print work and answers status queries
type Dispatcher interface {
	PrintReceipt(r *layout.Receipt)
	PrintXMLReceipt(doc string)
	OpenCashbox()
	PrintStatus()
	Status() status.Snapshot
	LastDeviceID() (string, bool)
	Len() int
}

// Registry is the persisted list of supported printers
type Registry interface {
	List() []registry.SupportedDevice
	Add(identification string)
}

// DeviceWatcher reports the supported printers currently plugged in
type DeviceWatcher interface {
	Devices() []registry.SupportedDevice
}

// StatusFeed streams status changes to websocket clients
type StatusFeed interface {
	Snapshot() status.Snapshot
	Subscribe() (<-chan status.Snapshot, func())
}

// Options configures receipt previews
type Options struct {
	Layout  layout.Options
	Preview preview.Options
}

// StatusReport is the body of GET /hw_proxy/status
type StatusReport struct {
	Status   status.State `json:"status"`
	Messages []string     `json:"messages"`
	DeviceID string       `json:"device_id,omitempty"`
	Queue    int          `json:"queue"`
}

// DeviceReport is the body of GET /devices
type DeviceReport struct {
	Supported []registry.SupportedDevice `json:"supported"`
	Connected []registry.SupportedDevice `json:"connected"`
}

// Server is the API server
type Server struct {
	router     *gin.Engine
	dispatcher Dispatcher
	registry   Registry
	devices    DeviceWatcher
	feed       StatusFeed
	opts       Options
	upgrader   websocket.Upgrader
}

// NewServer creates a new API server
func NewServer(d Dispatcher, reg Registry, devices DeviceWatcher, feed StatusFeed, opts Options) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(), corsMiddleware())

	server := &Server{
		router:     router,
		dispatcher: d,
		registry:   reg,
		devices:    devices,
		feed:       feed,
		opts:       opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // the point of sale runs in a browser on another origin
			},
		},
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	proxy := s.router.Group("/hw_proxy")
	proxy.POST("/print_receipt", s.handlePrintReceipt)
	proxy.POST("/print_xml_receipt", s.handlePrintXMLReceipt)
	proxy.POST("/open_cashbox", s.handleOpenCashbox)
	proxy.POST("/print_status", s.handlePrintStatus)
	proxy.GET("/status", s.handleStatus)

	s.router.GET("/devices", s.handleGetDevices)
	s.router.POST("/devices", s.handleAddDevice)
	s.router.POST("/preview", s.handlePreview)

	// WebSocket
	s.router.GET("/ws", s.handleWebSocket)

	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}

// Handler exposes the router for an http.Server
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handlePrintReceipt(c *gin.Context) {
	var req struct {
		Receipt *layout.Receipt `json:"receipt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "receipt is required"})
		return
	}

	s.dispatcher.PrintReceipt(req.Receipt)
	c.JSON(200, gin.H{"success": true})
}

func (s *Server) handlePrintXMLReceipt(c *gin.Context) {
	var req struct {
		Receipt string `json:"receipt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "receipt is required"})
		return
	}

	s.dispatcher.PrintXMLReceipt(req.Receipt)
	c.JSON(200, gin.H{"success": true})
}

func (s *Server) handleOpenCashbox(c *gin.Context) {
	s.dispatcher.OpenCashbox()
	c.JSON(200, gin.H{"success": true})
}

func (s *Server) handlePrintStatus(c *gin.Context) {
	s.dispatcher.PrintStatus()
	c.JSON(200, gin.H{"success": true})
}

// handleStatus returns the connection status along with the active device.
// Status queues the one connection attempt this request makes.
func (s *Server) handleStatus(c *gin.Context) {
	snap := s.dispatcher.Status()
	report := StatusReport{
		Status:   snap.State,
		Messages: snap.Messages,
		Queue:    s.dispatcher.Len(),
	}
	if id, ok := s.dispatcher.LastDeviceID(); ok {
		report.DeviceID = id
	}
	c.JSON(200, report)
}

// handleGetDevices returns the supported printers and the ones plugged in
func (s *Server) handleGetDevices(c *gin.Context) {
	c.JSON(200, DeviceReport{
		Supported: s.registry.List(),
		Connected: s.devices.Devices(),
	})
}

// handleAddDevice registers a printer from an lsusb style line
func (s *Server) handleAddDevice(c *gin.Context) {
	var req struct {
		Identification string `json:"identification" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "identification is required"})
		return
	}

	device, ok := registry.ParseIdentification(req.Identification)
	if !ok {
		c.JSON(400, gin.H{"error": "no vendor:product id found"})
		return
	}

	s.registry.Add(req.Identification)
	c.JSON(200, gin.H{
		"success": true,
		"device":  device,
	})
}

// handlePreview renders a receipt or a raw document to PNG
func (s *Server) handlePreview(c *gin.Context) {
	var req struct {
		Receipt json.RawMessage `json:"receipt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Receipt) == 0 || string(req.Receipt) == "null" {
		c.JSON(400, gin.H{"error": "receipt is required"})
		return
	}

	img, err := s.renderPreview(req.Receipt)
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.Data(200, "image/png", buf.Bytes())
}

// renderPreview treats a JSON string as a raw document and an object as
// a structured receipt
func (s *Server) renderPreview(raw json.RawMessage) (image.Image, error) {
	var doc string
	if err := json.Unmarshal(raw, &doc); err == nil {
		return preview.RenderDocument(doc, s.opts.Preview)
	}

	var receipt layout.Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, errors.Wrap(err, "invalid receipt")
	}
	ops := append(layout.Render(receipt, s.opts.Layout), layout.CutOp{})
	return preview.Render(ops, s.opts.Preview)
}

// requestID tags every request with an id, reusing the caller's if sent
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= 500 {
			event = log.Error()
		}
		event.
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
