package gateway

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/tradegate/pkg/httpclient"
	"github.com/nao1215/tradegate/pkg/middleware"
	"github.com/nao1215/tradegate/pkg/netguard"
	"github.com/nao1215/tradegate/pkg/signer"
)

// Server は公開ゲートウェイのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port は公開APIのリッスンポート。
	port string
	// metricsAddr はメトリクスを公開する管理用アドレス。
	metricsAddr string
	// metrics は中継処理のメトリクス。
	metrics *Metrics
}

// deps はサーバーが使う依存。テストで差し替える。
type deps struct {
	// signer は送信リクエストに署名する。
	signer *signer.Signer
	// client は内部サービスへ送信する。
	client *httpclient.Client
	// metrics は中継結果を記録する。
	metrics *Metrics
	// newCorrelationID は相関IDを生成する。nilの場合はUUID。
	newCorrelationID func() string
}

// NewServer は設定から公開ゲートウェイを生成する。
// 中継先はPrivateNetworkCIDRsの範囲に限定する。
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}

	var dialer *netguard.Dialer
	if cfg.PrivateNetworkCIDRs != "" {
		network, err := netguard.ParseNetwork(cfg.PrivateNetworkCIDRs)
		if err != nil {
			return nil, fmt.Errorf("プライベートネットワーク設定が不正です: %w", err)
		}
		dialer = &netguard.Dialer{Network: network, Timeout: 5 * time.Second}
		log.Printf("中継先を %s に限定します", network)
	}

	if err := cfg.Credentials.Validate(); err != nil {
		// 起動は継続し、各リクエストは署名段階で失敗させる
		log.Printf("ゲートウェイの認証情報が不正です。中継はすべて失敗します: %v", err)
	}

	return newServer(cfg, deps{
		signer:  signer.New(cfg.Region, cfg.Credentials),
		client:  httpclient.New(dialer),
		metrics: NewMetrics(),
	}), nil
}

// newServer は依存を注入してサーバーを生成する。
func newServer(cfg Config, d deps) *Server {
	router := gin.New()
	router.Use(middleware.CorrelationID(d.newCorrelationID))
	router.Use(middleware.Recovery(middleware.MaskedBody))
	router.Use(gin.Logger())
	router.Use(middleware.CORS(strings.Split(cfg.FrontendURL, ",")))

	s := &Server{
		router:      router,
		port:        cfg.Port,
		metricsAddr: cfg.MetricsAddr,
		metrics:     d.metrics,
	}
	s.setupRoutes(cfg, d)
	return s
}

// Handler は公開APIのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run は公開APIを起動する。MetricsAddrが設定されていれば管理用アドレスでメトリクスも公開する。
func (s *Server) Run() error {
	if s.metricsAddr != "" {
		go func() {
			srv := &http.Server{
				Addr:              s.metricsAddr,
				Handler:           s.metrics.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			log.Printf("メトリクスを公開します: %s", s.metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("メトリクスサーバーが停止しました: %v", err)
			}
		}()
	}
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(cfg Config, d deps) {
	relay := func(domain string, op Operation, baseURL string) gin.HandlerFunc {
		r := &Relay{
			Domain:    domain,
			Operation: op,
			BaseURL:   baseURL,
			Signer:    d.signer,
			Client:    d.client,
			Metrics:   d.metrics,
		}
		return middleware.Mask(r.Handle)
	}

	// 在庫
	s.router.POST("/stock", relay("stock", OperationCreate, cfg.StockAPI))
	s.router.GET("/stock/:id", relay("stock", OperationGet, cfg.StockAPI))

	// 注文
	s.router.POST("/orders", relay("orders", OperationCreate, cfg.OrdersAPI))
	s.router.GET("/orders/:id", relay("orders", OperationGet, cfg.OrdersAPI))

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	})
}
