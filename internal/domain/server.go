package domain

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/tradegate/pkg/identity"
	"github.com/nao1215/tradegate/pkg/middleware"
	"github.com/nao1215/tradegate/pkg/netguard"
	"github.com/nao1215/tradegate/pkg/policy"
	"github.com/nao1215/tradegate/pkg/signer"
	"github.com/nao1215/tradegate/pkg/store"
)

// Server は内部ドメインサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// network は接続を受け付けるネットワーク範囲。
	network netguard.Network
	// service はエンティティの作成と取得を行う。
	service *Service
	// closer はサーバー終了時に閉じるリソース。
	closer io.Closer
}

// NewServer は設定から内部ドメインサーバーを生成する。
// ドメインストアの初期化、リソースポリシーの読み込み、認証情報リゾルバの生成を行う。
func NewServer(ctx context.Context, cfg Config, kind Kind) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}
	network, err := netguard.ParseNetwork(cfg.PrivateNetworkCIDRs)
	if err != nil {
		return nil, fmt.Errorf("プライベートネットワーク設定が不正です: %w", err)
	}
	doc, err := cfg.Policy(kind.BasePath)
	if err != nil {
		return nil, err
	}
	authority, err := identity.New(cfg.IdentityRootKey)
	if err != nil {
		return nil, fmt.Errorf("認証局の初期化に失敗: %w", err)
	}
	st, err := store.Open(ctx, cfg.DatabasePath, cfg.TableName)
	if err != nil {
		return nil, fmt.Errorf("ドメインストアの初期化に失敗: %w", err)
	}

	s := newServer(cfg, NewService(kind, st), signer.NewVerifier(cfg.Region, authority), doc)
	s.network = network
	s.closer = st
	return s, nil
}

// newServer は依存を注入してサーバーを生成する。
func newServer(cfg Config, service *Service, verifier *signer.Verifier, doc policy.Document) *Server {
	router := gin.New()
	router.Use(middleware.CorrelationID(nil))
	router.Use(middleware.Recovery(middleware.PlatformBody))
	router.Use(gin.Logger())
	router.Use(middleware.PlatformErrors())

	s := &Server{
		router:  router,
		port:    cfg.Port,
		service: service,
	}
	s.setupRoutes(cfg, verifier, doc)
	return s
}

// Handler はサーバーのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はプライベートネットワーク内からの接続のみを受け付けてHTTPサーバーを起動する。
func (s *Server) Run() error {
	ln, err := netguard.Listen("tcp", net.JoinHostPort("", s.port), s.network)
	if err != nil {
		return fmt.Errorf("リッスンに失敗: %w", err)
	}
	log.Printf("%sサービスは %s からの接続のみを受け付けます", s.service.Kind().Type, s.network)
	return s.Serve(ln)
}

// Serve は指定したリスナーでHTTPサーバーを起動する。
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.Serve(ln)
}

// Close はサーバーが保持するリソースを閉じる。
func (s *Server) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(cfg Config, verifier *signer.Verifier, doc policy.Document) {
	base := "/" + strings.Trim(s.service.Kind().BasePath, "/")

	api := s.router.Group("/" + cfg.Stage)
	api.Use(middleware.SignatureAuth(verifier))
	api.Use(middleware.ResourcePolicy(doc, cfg.Scope()))
	{
		// エンティティ作成
		api.POST(base, middleware.Propagate(s.handleCreate()))
		// エンティティ取得
		api.GET(base+"/:id", middleware.Propagate(s.handleGet()))
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": strings.ToLower(s.service.Kind().Type)})
	})

	// 付与されていない経路は存在の有無を区別せず認可エラーとする
	s.router.NoRoute(handleUnknownRoute)
	s.router.NoMethod(handleUnknownRoute)
}

// handleUnknownRoute は未定義の経路への要求を403で拒否する。
func handleUnknownRoute(c *gin.Context) {
	middleware.Logf(c, "未定義の経路への要求を拒否")
	c.AbortWithStatusJSON(http.StatusForbidden, middleware.ForbiddenBody)
}

// handleCreate はエンティティ作成ハンドラを返す。
func (s *Server) handleCreate() middleware.HandlerFunc {
	return func(c *gin.Context) error {
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return fmt.Errorf("リクエストボディの読み込みに失敗: %w", err)
		}

		item, err := s.service.Create(c.Request.Context(), payload)
		if err != nil {
			return err
		}
		middleware.Logf(c, "%sを作成しました: id=%v", s.service.Kind().Type, item["id"])
		c.JSON(http.StatusCreated, item)
		return nil
	}
}

// handleGet はエンティティ取得ハンドラを返す。
func (s *Server) handleGet() middleware.HandlerFunc {
	return func(c *gin.Context) error {
		item, err := s.service.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, item)
		return nil
	}
}
