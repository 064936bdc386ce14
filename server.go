package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/upl_backend/config"
	"github.com/mmdatafocus/upl_backend/middlewares"
	"github.com/mmdatafocus/upl_backend/models"
	"github.com/mmdatafocus/upl_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("upl-backend")

// respondError maps engine errors onto HTTP statuses. Unknown errors are
// logged and returned as 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return
	}

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorAlreadyExists),
		errors.Is(err, utils.ErrorVersionConflict),
		errors.Is(err, utils.ErrorLocationConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorInvalidState),
		errors.Is(err, utils.ErrorInvalidQuantity),
		errors.Is(err, utils.ErrorInvalidSplit),
		errors.Is(err, utils.ErrorLocationMismatch),
		errors.Is(err, utils.ErrorNoOpMove),
		errors.Is(err, utils.ErrorPriceInconsistent),
		errors.Is(err, utils.ErrorInvalidUplCode):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		logger := config.GetLogger()
		config.LogError(logger, "server.go", "respondError", c.FullPath(), nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func createLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewLocation
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		location, err := models.CreateLocation(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, location)
	}
}

func getLocationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		locations, err := models.GetLocations(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, locations)
	}
}

func getLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
			return
		}
		location, err := models.GetLocation(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, location)
	}
}

func getLocationUplsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
			return
		}
		ctx := c.Request.Context()
		if err := utils.ValidateResourceId[models.Location](ctx, id); err != nil {
			respondError(c, err)
			return
		}
		upls, err := models.GetUplsByLocation(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, upls)
	}
}

func createUplHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUpl
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		upl, err := models.CreateUpl(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, upl)
	}
}

func createUplsBulkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var inputs []*models.NewUpl
		if err := c.ShouldBindJSON(&inputs); err != nil {
			respondError(c, err)
			return
		}
		ids, err := models.CreateUplsBulk(c.Request.Context(), inputs)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"created_ids": ids})
	}
}

func listUplsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		idsParam := strings.TrimSpace(c.Query("ids"))
		if idsParam == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ids query parameter required"})
			return
		}
		upls, err := models.GetUplsBulk(c.Request.Context(), splitAndTrim(idsParam))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, upls)
	}
}

func getUplHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		upl, err := models.GetUpl(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, upl)
	}
}

func getUplLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		locationId, err := models.GetUplLocation(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"location_id": locationId})
	}
}

func getUplHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := models.GetUplHistory(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

func getGlobalHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		since, _ := strconv.ParseInt(c.DefaultQuery("since", "0"), 10, 64)
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
		events, err := models.GetGlobalHistory(c.Request.Context(), since, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

func divideUplHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "DivideUpl")
		defer span.End()
		var input models.DivideUpl
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		source, target, err := models.DivideUplCommand(ctx, c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"source": source, "target": target})
	}
}

func mergeUplHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "MergeUpl")
		defer span.End()
		var input models.MergeUpl
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		to, from, err := models.MergeUplCommand(ctx, c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"to": to, "from": from})
	}
}

func moveUplHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.MoveUpl
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		upl, err := models.MoveUplCommand(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, upl)
	}
}

func setUplBestBeforeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.SetUplBestBefore
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		upl, err := models.SetUplBestBeforeCommand(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, upl)
	}
}

func setUplCullingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.SetUplCulling
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		upl, err := models.SetUplCullingCommand(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, upl)
	}
}

func setUplPriceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.SetUplPrice
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		upl, err := models.SetUplPriceCommand(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, upl)
	}
}

// customErrorLogger logs only requests that accumulated gin errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until the DB is ready, app endpoints return 503.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production require an explicit allowlist; allow all elsewhere.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "X-Initiator-Id", "X-Initiator-Name", "X-Correlation-Id")
	corsConfig.AddExposeHeaders("Content-Length", "X-Correlation-Id")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.SessionMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/locations", createLocationHandler())
	r.GET("/locations", getLocationsHandler())
	r.GET("/locations/:id", getLocationHandler())
	r.GET("/locations/:id/upls", getLocationUplsHandler())

	r.POST("/upls", createUplHandler())
	r.POST("/upls/bulk", createUplsBulkHandler())
	r.GET("/upls", listUplsHandler())
	r.GET("/upls/:id", getUplHandler())
	r.GET("/upls/:id/location", getUplLocationHandler())
	r.GET("/upls/:id/history", getUplHistoryHandler())
	r.GET("/history", getGlobalHistoryHandler())

	r.POST("/upls/:id/divide", divideUplHandler())
	r.POST("/upls/:id/merge", mergeUplHandler())
	r.POST("/upls/:id/move", moveUplHandler())
	r.POST("/upls/:id/best-before", setUplBestBeforeHandler())
	r.POST("/upls/:id/culling", setUplCullingHandler())
	r.POST("/upls/:id/price", setUplPriceHandler())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	config.ConnectPubSub()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations
	// as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	config.ClosePubSub()
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
