package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/tradegate/pkg/failure"
)

// CreatedFormat は作成日時の形式（UTC、ミリ秒付きISO-8601）。
const CreatedFormat = "2006-01-02T15:04:05.000Z"

// Store はエンティティの保存先。
type Store interface {
	// Put は識別子に対してエンティティを保存する。
	Put(ctx context.Context, id string, item any) error
	// Get は識別子でエンティティを取得し、dstにデシリアライズする。
	Get(ctx context.Context, id string, dst any) error
}

// Kind はドメインごとの定義。
type Kind struct {
	// Type はエンティティの種別タグ（例: Orders）。
	Type string
	// BasePath はステージを除いたリソースのベースパス（例: /orders）。
	BasePath string
	// Required は作成時に必須の項目。
	Required []string
	// Projection は取得時に外部へ公開する射影の空値を生成する。
	Projection func() any
}

// Service はドメインエンティティの作成と取得を行う。
type Service struct {
	// kind はドメインの定義。
	kind Kind
	// store はエンティティの保存先。
	store Store
	// newID は識別子を生成する。
	newID func() string
	// now は現在時刻を返す。
	now func() time.Time

	// mu はlastCreatedを保護する。
	mu sync.Mutex
	// lastCreated は直前に付与した作成日時。
	lastCreated time.Time
}

// Option はServiceの設定を変更する。
type Option func(*Service)

// WithIDGenerator は識別子の生成関数を差し替える。
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithClock は時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService は新しいServiceを生成する。
func NewService(kind Kind, store Store, opts ...Option) *Service {
	s := &Service{
		kind:  kind,
		store: store,
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind はドメインの定義を返す。
func (s *Service) Kind() Kind {
	return s.kind
}

// Create はペイロードからエンティティを作成して保存し、作成したエンティティを返す。
//
// 必須項目の存在のみを検証し、型や範囲は検証しない。ペイロードの余分な項目はそのまま保存する。
// 識別子・作成日時・種別タグはペイロードの値を上書きする。
func (s *Service) Create(ctx context.Context, payload []byte) (map[string]any, error) {
	item, err := decodeObject(payload)
	if err != nil {
		return nil, err
	}
	for _, key := range s.kind.Required {
		if _, ok := item[key]; !ok {
			return nil, fmt.Errorf("%sは必須です: %w", key, failure.ErrValidation)
		}
	}

	id := s.newID()
	item["id"] = id
	item["type"] = s.kind.Type
	item["created"] = s.created().Format(CreatedFormat)

	if err := s.store.Put(ctx, id, item); err != nil {
		return nil, fmt.Errorf("%sの保存に失敗: %w", s.kind.Type, err)
	}
	return item, nil
}

// Get は識別子でエンティティを取得し、公開用の射影を返す。
// 存在しない場合は failure.ErrNotFound をラップしたエラーを返す。
func (s *Service) Get(ctx context.Context, id string) (any, error) {
	if id == "" {
		return nil, fmt.Errorf("識別子は必須です: %w", failure.ErrValidation)
	}
	dst := s.kind.Projection()
	if err := s.store.Get(ctx, id, dst); err != nil {
		return nil, fmt.Errorf("%sの取得に失敗: %w", s.kind.Type, err)
	}
	return dst, nil
}

// created は作成日時を返す。同一プロセス内では直前の値より前にならない。
func (s *Service) created() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().UTC().Truncate(time.Millisecond)
	if t.Before(s.lastCreated) {
		t = s.lastCreated
	}
	s.lastCreated = t
	return t
}

// decodeObject はJSONオブジェクトをデコードする。数値は元の表現のまま保持する。
func decodeObject(payload []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, fmt.Errorf("リクエストボディが空です: %w", failure.ErrValidation)
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var item map[string]any
	if err := dec.Decode(&item); err != nil {
		return nil, fmt.Errorf("リクエストボディのパースに失敗: %v: %w", err, failure.ErrValidation)
	}
	if item == nil {
		return nil, fmt.Errorf("リクエストボディがJSONオブジェクトではありません: %w", failure.ErrValidation)
	}
	return item, nil
}
