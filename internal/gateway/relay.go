package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/tradegate/pkg/failure"
	"github.com/nao1215/tradegate/pkg/httpclient"
	"github.com/nao1215/tradegate/pkg/middleware"
	"github.com/nao1215/tradegate/pkg/signer"
)

// Operation は中継する操作。
type Operation string

const (
	// OperationCreate はエンティティ作成。
	OperationCreate Operation = "create"
	// OperationGet は識別子によるエンティティ取得。
	OperationGet Operation = "get"
)

// Stage は中継処理の段階。
type Stage string

const (
	// StageValidating は受信リクエストの検証中。
	StageValidating Stage = "validating"
	// StageSigning は送信リクエストの署名中。
	StageSigning Stage = "signing"
	// StageSending は内部サービスへの送信中。
	StageSending Stage = "sending"
	// StageResponding は呼び出し元への応答中。
	StageResponding Stage = "responding"
)

// maxBodyBytes は受け付けるリクエストボディの上限。
const maxBodyBytes = 1 << 20

// Relay は1つのドメイン・操作の中継ハンドラ。
// 検証・署名・送信・応答の順に進み、いずれかで失敗したらエラーを返す。
type Relay struct {
	// Domain はドメイン名（stock / orders）。
	Domain string
	// Operation は中継する操作。
	Operation Operation
	// BaseURL は内部サービスのベースURL。
	BaseURL string
	// Signer は送信リクエストに署名する。
	Signer *signer.Signer
	// Client は署名済みリクエストを送信する。
	Client *httpclient.Client
	// Metrics は中継結果を記録する。nilの場合は記録しない。
	Metrics *Metrics
}

// Handle は中継を実行する。middleware.Mask で包んでルートに登録する。
func (r *Relay) Handle(c *gin.Context) (err error) {
	start := time.Now()
	stage := StageValidating
	defer func() {
		r.Metrics.Observe(r.Domain, r.Operation, stage, err, time.Since(start))
		if err != nil {
			err = fmt.Errorf("%s %s の%s段階で失敗: %w", r.Domain, r.Operation, stage, err)
		}
	}()

	method, target, body, err := r.validate(c)
	if err != nil {
		return err
	}

	stage = StageSigning
	ctx := httpclient.WithConsumerID(c.Request.Context(), httpclient.ConsumerExternalAPI)
	env, err := r.Signer.Sign(method, target, body, httpclient.ConsumerHeader(ctx))
	if err != nil {
		return err
	}

	stage = StageSending
	middleware.Logf(c, "内部サービスへ中継します: %s %s", method, target)
	resp, err := r.Client.Send(ctx, env)
	if err != nil {
		return err
	}

	stage = StageResponding
	if !json.Valid(resp.Body) {
		return fmt.Errorf("内部サービスのレスポンスがJSONではありません: %w", failure.ErrUpstreamStatus)
	}
	c.Data(r.successStatus(), "application/json; charset=utf-8", resp.Body)
	return nil
}

// validate は受信リクエストを検証し、送信するメソッド・URL・ボディを返す。
func (r *Relay) validate(c *gin.Context) (string, string, []byte, error) {
	base := strings.TrimSuffix(r.BaseURL, "/")

	switch r.Operation {
	case OperationCreate:
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			return "", "", nil, fmt.Errorf("リクエストボディの読み込みに失敗: %v: %w", err, failure.ErrValidation)
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return "", "", nil, fmt.Errorf("リクエストボディが空です: %w", failure.ErrValidation)
		}
		var input map[string]json.RawMessage
		if err := json.Unmarshal(body, &input); err != nil || input == nil {
			return "", "", nil, fmt.Errorf("リクエストボディがJSONオブジェクトではありません: %w", failure.ErrValidation)
		}
		return http.MethodPost, base, body, nil

	case OperationGet:
		id := c.Param("id")
		if id == "" {
			return "", "", nil, fmt.Errorf("識別子は必須です: %w", failure.ErrValidation)
		}
		return http.MethodGet, base + "/" + url.PathEscape(id), nil, nil

	default:
		return "", "", nil, fmt.Errorf("未対応の操作です: %s: %w", r.Operation, failure.ErrValidation)
	}
}

// successStatus は成功時に返すステータスコード。
func (r *Relay) successStatus() int {
	if r.Operation == OperationCreate {
		return http.StatusCreated
	}
	return http.StatusOK
}
