package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/tradegate/pkg/policy"
	"github.com/nao1215/tradegate/pkg/signer"
)

const (
	// testRegion はテスト用のリージョン。
	testRegion = "eu-west-1"
	// testPrincipal は許可された呼び出し元アカウント。
	testPrincipal = "33333333333"
	// testAccessKeyID はテスト用のアクセスキーID。
	testAccessKeyID = "AKIDEXAMPLE12345"
	// testSecretKey はテスト用の秘密鍵。
	testSecretKey = "wJalrXUtnFEMI/K7MDENG+bPxRfiCY"
)

// testScope はテスト用のAPIの所在。
var testScope = Scope{Region: testRegion, Account: "22222222222", APIID: "8vkm34k946", Stage: "prod"}

// setupAuthRouter は署名検証とリソースポリシーを適用した内部ルーターを生成する。
func setupAuthRouter(principal string) *gin.Engine {
	resolver := signer.StaticResolver{
		testAccessKeyID: {SecretAccessKey: testSecretKey, Principal: principal},
	}
	doc := policy.Default(policy.Grant{
		Region:    testScope.Region,
		Account:   testScope.Account,
		APIID:     testScope.APIID,
		Stage:     testScope.Stage,
		BasePath:  "/orders",
		Principal: testPrincipal,
	})

	router := gin.New()
	router.Use(CorrelationID(nil))
	api := router.Group("/prod", SignatureAuth(signer.NewVerifier(testRegion, resolver)), ResourcePolicy(doc, testScope))
	api.POST("/orders", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.JSON(http.StatusCreated, gin.H{"principal": GetPrincipal(c), "body": string(body)})
	})
	api.GET("/orders/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	api.GET("/orders", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})
	return router
}

// signedRequest は署名済みのリクエストを生成する。
func signedRequest(t *testing.T, method, path string, body []byte, now time.Time) *http.Request {
	t.Helper()

	s := signer.New(testRegion, signer.Credentials{AccessKeyID: testAccessKeyID, SecretAccessKey: testSecretKey})
	s.Now = func() time.Time { return now }
	env, err := s.Sign(method, "http://orders.internal"+path, body, nil)
	if err != nil {
		t.Fatalf("Sign()でエラーが発生: %v", err)
	}
	req, err := env.Request(context.Background())
	if err != nil {
		t.Fatalf("Request()でエラーが発生: %v", err)
	}
	return req
}

// TestSignatureAuthAndResourcePolicy は署名検証とリソースポリシーの組み合わせを検証する。
func TestSignatureAuthAndResourcePolicy(t *testing.T) {
	t.Parallel()

	t.Run("許可された呼び出し元のPOSTが通りボディがハンドラーに届くこと", func(t *testing.T) {
		t.Parallel()

		router := setupAuthRouter(testPrincipal)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, signedRequest(t, http.MethodPost, "/prod/orders", []byte(`{"quantity":1}`), time.Now()))

		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード = %d, want %d (body=%s)", w.Code, http.StatusCreated, w.Body.String())
		}
		var got map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if got["principal"] != testPrincipal || got["body"] != `{"quantity":1}` {
			t.Errorf("response = %v", got)
		}
	})

	t.Run("許可された呼び出し元のGETが通ること", func(t *testing.T) {
		t.Parallel()

		router := setupAuthRouter(testPrincipal)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, signedRequest(t, http.MethodGet, "/prod/orders/abc", nil, time.Now()))

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("ボディがnilの署名済みGETが通ること", func(t *testing.T) {
		t.Parallel()

		req := signedRequest(t, http.MethodGet, "/prod/orders/abc", nil, time.Now())
		req.Body = nil

		router := setupAuthRouter(testPrincipal)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d (body=%s)", w.Code, http.StatusOK, w.Body.String())
		}
	})

	tests := []struct {
		name      string
		principal string
		req       func(t *testing.T) *http.Request
	}{
		{
			name:      "署名のないリクエストは403になること",
			principal: testPrincipal,
			req: func(_ *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodGet, "/prod/orders/abc", nil)
			},
		},
		{
			name:      "期限切れの署名は403になること",
			principal: testPrincipal,
			req: func(t *testing.T) *http.Request {
				return signedRequest(t, http.MethodGet, "/prod/orders/abc", nil, time.Now().Add(-10*time.Minute))
			},
		},
		{
			name:      "許可されていない呼び出し元は403になること",
			principal: "44444444444",
			req: func(t *testing.T) *http.Request {
				return signedRequest(t, http.MethodGet, "/prod/orders/abc", nil, time.Now())
			},
		},
		{
			name:      "ポリシーにない一覧取得は403になること",
			principal: testPrincipal,
			req: func(t *testing.T) *http.Request {
				return signedRequest(t, http.MethodGet, "/prod/orders", nil, time.Now())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := setupAuthRouter(tt.principal)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tt.req(t))

			if w.Code != http.StatusForbidden {
				t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusForbidden)
			}
			if got := parseMessage(t, w); got != "Forbidden" {
				t.Errorf("message = %q, want %q", got, "Forbidden")
			}
		})
	}
}

// TestStagePath はステージの除去を検証する。
func TestStagePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path, stage, want string
	}{
		{"/prod/orders/1", "prod", "/orders/1"},
		{"/prod/orders", "prod", "/orders"},
		{"/prod", "prod", "/"},
		{"/production/orders", "prod", "/production/orders"},
		{"/orders", "", "/orders"},
	}
	for _, tt := range tests {
		if got := stagePath(tt.path, tt.stage); got != tt.want {
			t.Errorf("stagePath(%q, %q) = %q, want %q", tt.path, tt.stage, got, tt.want)
		}
	}
}
