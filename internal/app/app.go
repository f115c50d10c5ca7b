package app

import (
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/mvigliero/celushop/internal/adapters/audit"
	"github.com/mvigliero/celushop/internal/adapters/httpserver"
	"github.com/mvigliero/celushop/internal/adapters/notify/redisbus"
	"github.com/mvigliero/celushop/internal/adapters/repo/postgres"
	"github.com/mvigliero/celushop/internal/domain"
	"github.com/mvigliero/celushop/internal/usecase"

	zlog "github.com/rs/zerolog/log"
)

type App struct {
	DB          *gorm.DB
	ProductUC   *usecase.ProductUC
	OrderUC     *usecase.OrderUC
	CartUC      *usecase.CartUC
	DiscountUC  *usecase.DiscountUC
	Customers   domain.CustomerRepo
	OAuthConfig *oauth2.Config
}

func NewApp(db *gorm.DB, rdb *redis.Client) (*App, error) {
	prodRepo := postgres.NewProductRepo(db)
	orderRepo := postgres.NewOrderRepo(db)
	cartRepo := postgres.NewCartRepo(db)
	discRepo := postgres.NewDiscountRepo(db)
	custRepo := postgres.NewCustomerRepo(db)

	notifier := redisbus.New(rdb)
	auditLog := audit.New(zlog.Logger)

	var oauthCfg *oauth2.Config
	googleID := os.Getenv("GOOGLE_CLIENT_ID")
	googleSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if googleID != "" && googleSecret != "" {
		oauthCfg = &oauth2.Config{
			ClientID:     googleID,
			ClientSecret: googleSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	app := &App{DB: db, Customers: custRepo, OAuthConfig: oauthCfg}
	app.ProductUC = &usecase.ProductUC{Products: prodRepo}
	app.OrderUC = &usecase.OrderUC{
		Orders:    orderRepo,
		Products:  prodRepo,
		Carts:     cartRepo,
		Discounts: discRepo,
		Customers: custRepo,
		Notifier:  notifier,
		Audit:     auditLog,
	}
	app.CartUC = &usecase.CartUC{Carts: cartRepo, Products: prodRepo}
	app.DiscountUC = &usecase.DiscountUC{Discounts: discRepo}
	return app, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.ProductUC, a.OrderUC, a.CartUC, a.DiscountUC, a.Customers, a.OAuthConfig)
}

func (a *App) Migrate() error {
	if err := a.DB.AutoMigrate(
		&domain.Product{}, &domain.Variant{}, &domain.StorageOption{}, &domain.SizeOption{},
		&domain.Cart{}, &domain.CartItem{},
		&domain.Order{}, &domain.OrderItem{},
		&domain.Discount{}, &domain.Customer{}, &domain.Address{},
	); err != nil {
		return err
	}

	_ = a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_variants_sku_unique ON variants (sku) WHERE sku IS NOT NULL AND sku <> ''").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders (user_id, status)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_cart_items_cart_product ON cart_items (cart_id, product_id)").Error
	_ = a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_discounts_code_lower ON discounts (LOWER(code))").Error

	return nil
}
