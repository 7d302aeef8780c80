// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/go-petr/pet-ledger/docs"
	"github.com/go-petr/pet-ledger/internal/balancedelivery"
	"github.com/go-petr/pet-ledger/internal/ledgerrepo"
	"github.com/go-petr/pet-ledger/internal/ledgerservice"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/sessiondelivery"
	"github.com/go-petr/pet-ledger/internal/sessionrepo"
	"github.com/go-petr/pet-ledger/internal/sessionservice"
	"github.com/go-petr/pet-ledger/internal/transactiondelivery"
	"github.com/go-petr/pet-ledger/internal/userdelivery"
	"github.com/go-petr/pet-ledger/internal/userrepo"
	"github.com/go-petr/pet-ledger/internal/userservice"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
//
// OTP codes issued during registration are handed to sender.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config, sender userservice.OTPSender) (*Server, error) {
	decimal.MarshalJSONWithoutQuotes = true

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("txkind", transactiondelivery.ValidKind); err != nil {
			return nil, fmt.Errorf("cannot register txkind validator: %w", err)
		}
	}

	tokenMaker, err := tokenpkg.New(config.TokenMaker, config.TokenSymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	userRepo := userrepo.NewRepoPGS(conn)
	sessionRepo := sessionrepo.NewRepoPGS(conn)
	ledgerRepo := ledgerrepo.NewRepoPGS(conn)

	userService := userservice.New(userRepo, sender, config.OTPTTL)
	ledgerService := ledgerservice.New(ledgerRepo, config.LedgerTxAttempts)

	sessionService, err := sessionservice.New(sessionRepo, config, tokenMaker)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize session service: %w", err)
	}

	userHandler := userdelivery.NewHandler(userService, sessionService)
	sessionHandler := sessiondelivery.NewHandler(sessionService)
	transactionHandler := transactiondelivery.NewHandler(ledgerService)
	balanceHandler := balancedelivery.NewHandler(ledgerService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(config.CORSOrigin))

	auth := middleware.AuthMiddleware(sessionService.TokenMaker)

	authRoutes := engine.Group("/auth")
	authRoutes.POST("/register", userHandler.Register)
	authRoutes.POST("/verify-otp", userHandler.VerifyOTP)
	authRoutes.POST("/resend-otp", userHandler.ResendOTP)
	authRoutes.POST("/login", userHandler.Login)
	authRoutes.POST("/refresh", sessionHandler.RenewAccessToken)
	authRoutes.POST("/logout", sessionHandler.Logout)
	authRoutes.GET("/profile", auth, userHandler.Profile)
	authRoutes.DELETE("/users/:id", auth, userHandler.Delete)

	transactionRoutes := engine.Group("/transactions", auth)
	transactionRoutes.POST("", transactionHandler.Create)
	transactionRoutes.GET("", transactionHandler.List)
	transactionRoutes.GET("/export", transactionHandler.Export)
	transactionRoutes.GET("/type/:type", transactionHandler.ListByKind)
	transactionRoutes.GET("/:id", transactionHandler.Get)
	transactionRoutes.PUT("/:id", transactionHandler.Update)
	transactionRoutes.DELETE("/:id", transactionHandler.Delete)

	engine.GET("/balance", auth, balanceHandler.Get)

	engine.GET("/health", func(gctx *gin.Context) {
		gctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	docs.SwaggerInfo.BasePath = "/"
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	server := &Server{
		DB:     conn,
		Engine: engine,
		Config: config,
	}

	return server, nil
}
