package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nao1215/tradegate/pkg/failure"
	"github.com/nao1215/tradegate/pkg/store"
)

// testProjection はテスト用の射影。
type testProjection struct {
	ID       string          `json:"id"`
	Quantity json.RawMessage `json:"quantity"`
	Created  string          `json:"created"`
	Type     string          `json:"type"`
}

// testKind はテスト用のドメイン定義。
var testKind = Kind{
	Type:       "Widgets",
	BasePath:   "/widgets",
	Required:   []string{"productId", "quantity"},
	Projection: func() any { return &testProjection{} },
}

// setupTestStore はテスト用のインメモリストアを生成する。
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(context.Background(), ":memory:", testKind.Type)
	if err != nil {
		t.Fatalf("ストアの作成に失敗: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// sequence は連番の識別子を生成する。
func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// TestServiceCreate はエンティティ作成を検証する。
func TestServiceCreate(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 10, 17, 12, 30, 0, 123456789, time.UTC)

	t.Run("識別子・作成日時・種別タグを付与して保存すること", func(t *testing.T) {
		t.Parallel()

		svc := NewService(testKind, setupTestStore(t), WithIDGenerator(sequence()), WithClock(func() time.Time { return fixed }))
		item, err := svc.Create(context.Background(), []byte(`{"productId":"P1","quantity":5,"note":"extra"}`))
		if err != nil {
			t.Fatalf("Create()でエラーが発生: %v", err)
		}

		if item["id"] != "id-1" {
			t.Errorf("id = %v, want id-1", item["id"])
		}
		if item["type"] != "Widgets" {
			t.Errorf("type = %v, want Widgets", item["type"])
		}
		if item["created"] != "2026-10-17T12:30:00.123Z" {
			t.Errorf("created = %v, want 2026-10-17T12:30:00.123Z", item["created"])
		}
		if item["quantity"] != json.Number("5") {
			t.Errorf("quantity = %#v, want 5", item["quantity"])
		}
		if item["note"] != "extra" {
			t.Errorf("追加の項目が保持されていない: %v", item)
		}
	})

	t.Run("ペイロードの識別子や種別タグは上書きされること", func(t *testing.T) {
		t.Parallel()

		svc := NewService(testKind, setupTestStore(t), WithIDGenerator(sequence()))
		item, err := svc.Create(context.Background(), []byte(`{"productId":"P1","quantity":1,"id":"forged","type":"Other"}`))
		if err != nil {
			t.Fatalf("Create()でエラーが発生: %v", err)
		}
		if item["id"] != "id-1" || item["type"] != "Widgets" {
			t.Errorf("item = %v", item)
		}
	})

	invalid := []struct {
		name    string
		payload string
	}{
		{name: "空のボディ", payload: ""},
		{name: "JSONでないボディ", payload: "not json"},
		{name: "配列のボディ", payload: `[1,2]`},
		{name: "nullのボディ", payload: `null`},
		{name: "productIdの欠落", payload: `{"quantity":5}`},
		{name: "quantityの欠落", payload: `{"productId":"P1"}`},
	}
	for _, tt := range invalid {
		t.Run(tt.name+"はErrValidationになること", func(t *testing.T) {
			t.Parallel()

			svc := NewService(testKind, setupTestStore(t))
			_, err := svc.Create(context.Background(), []byte(tt.payload))
			if !errors.Is(err, failure.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}

	t.Run("型は検証せず存在のみを確認すること", func(t *testing.T) {
		t.Parallel()

		svc := NewService(testKind, setupTestStore(t))
		if _, err := svc.Create(context.Background(), []byte(`{"productId":7,"quantity":"many"}`)); err != nil {
			t.Errorf("Create()でエラーが発生: %v", err)
		}
	})

	t.Run("時計が戻っても作成日時は単調に増加すること", func(t *testing.T) {
		t.Parallel()

		times := []time.Time{fixed, fixed.Add(-time.Hour), fixed.Add(time.Second)}
		i := 0
		svc := NewService(testKind, setupTestStore(t), WithClock(func() time.Time {
			tm := times[i]
			i++
			return tm
		}))

		var prev string
		for range times {
			item, err := svc.Create(context.Background(), []byte(`{"productId":"P","quantity":1}`))
			if err != nil {
				t.Fatalf("Create()でエラーが発生: %v", err)
			}
			created := item["created"].(string)
			if created < prev {
				t.Errorf("created = %s, 直前の %s より前", created, prev)
			}
			prev = created
		}
	})

	t.Run("識別子はそれぞれ異なること", func(t *testing.T) {
		t.Parallel()

		svc := NewService(testKind, setupTestStore(t))
		seen := make(map[string]bool)
		for range 50 {
			item, err := svc.Create(context.Background(), []byte(`{"productId":"P","quantity":1}`))
			if err != nil {
				t.Fatalf("Create()でエラーが発生: %v", err)
			}
			id := item["id"].(string)
			if seen[id] {
				t.Fatalf("識別子が重複した: %s", id)
			}
			seen[id] = true
		}
	})
}

// TestServiceGet はエンティティ取得を検証する。
func TestServiceGet(t *testing.T) {
	t.Parallel()

	t.Run("作成直後に取得した射影が作成結果と一致すること", func(t *testing.T) {
		t.Parallel()

		svc := NewService(testKind, setupTestStore(t))
		ctx := context.Background()
		item, err := svc.Create(ctx, []byte(`{"productId":"P1","quantity":5,"note":"extra"}`))
		if err != nil {
			t.Fatalf("Create()でエラーが発生: %v", err)
		}

		got, err := svc.Get(ctx, item["id"].(string))
		if err != nil {
			t.Fatalf("Get()でエラーが発生: %v", err)
		}
		p, ok := got.(*testProjection)
		if !ok {
			t.Fatalf("Get()の型 = %T, want *testProjection", got)
		}
		if p.ID != item["id"] || p.Created != item["created"] || p.Type != item["type"] || string(p.Quantity) != "5" {
			t.Errorf("projection = %+v, created = %v", p, item)
		}
	})

	t.Run("空の識別子はErrValidationになること", func(t *testing.T) {
		t.Parallel()

		svc := NewService(testKind, setupTestStore(t))
		if _, err := svc.Get(context.Background(), ""); !errors.Is(err, failure.ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("存在しない識別子はErrNotFoundになること", func(t *testing.T) {
		t.Parallel()

		svc := NewService(testKind, setupTestStore(t))
		if _, err := svc.Get(context.Background(), "never-created"); !errors.Is(err, failure.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}
