package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nao1215/tradegate/pkg/failure"
)

// setupTestStore はテスト用のインメモリStoreを生成する。
func setupTestStore(t *testing.T, table string) *Store {
	t.Helper()

	s, err := Open(context.Background(), ":memory:", table)
	if err != nil {
		t.Fatalf("Storeの作成に失敗: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testItem はテスト用のエンティティ。
type testItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// TestOpen はStoreの生成を検証する。
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("テーブル名が空の場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		_, err := Open(context.Background(), ":memory:", "")
		if !errors.Is(err, failure.ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("ファイルDBを再度開いてもデータが残ること", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "items.db")
		ctx := context.Background()

		s, err := Open(ctx, path, "Stock")
		if err != nil {
			t.Fatalf("Open()でエラーが発生: %v", err)
		}
		if err := s.Put(ctx, "a", testItem{ID: "a", Quantity: 1}); err != nil {
			t.Fatalf("Put()でエラーが発生: %v", err)
		}
		s.Close()

		s, err = Open(ctx, path, "Stock")
		if err != nil {
			t.Fatalf("2回目のOpen()でエラーが発生: %v", err)
		}
		defer s.Close()

		var got testItem
		if err := s.Get(ctx, "a", &got); err != nil {
			t.Fatalf("Get()でエラーが発生: %v", err)
		}
		if got.Quantity != 1 {
			t.Errorf("Quantity = %d, want 1", got.Quantity)
		}
	})
}

// TestPutGet は保存と取得を検証する。
func TestPutGet(t *testing.T) {
	t.Parallel()

	t.Run("保存したエンティティを取得できること", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t, "Orders")
		ctx := context.Background()
		if err := s.Put(ctx, "o-1", testItem{ID: "o-1", Quantity: 3}); err != nil {
			t.Fatalf("Put()でエラーが発生: %v", err)
		}

		var got testItem
		if err := s.Get(ctx, "o-1", &got); err != nil {
			t.Fatalf("Get()でエラーが発生: %v", err)
		}
		if got != (testItem{ID: "o-1", Quantity: 3}) {
			t.Errorf("got = %+v", got)
		}
	})

	t.Run("存在しない識別子はErrNotFoundになること", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t, "Orders")
		var got testItem
		err := s.Get(context.Background(), "missing", &got)
		if !errors.Is(err, failure.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("同じ識別子の再保存はErrDuplicateで既存値を変更しないこと", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t, "Stock")
		ctx := context.Background()
		if err := s.Put(ctx, "s-1", testItem{ID: "s-1", Quantity: 1}); err != nil {
			t.Fatalf("Put()でエラーが発生: %v", err)
		}
		err := s.Put(ctx, "s-1", testItem{ID: "s-1", Quantity: 99})
		if !errors.Is(err, ErrDuplicate) {
			t.Fatalf("err = %v, want ErrDuplicate", err)
		}

		var got testItem
		if err := s.Get(ctx, "s-1", &got); err != nil {
			t.Fatalf("Get()でエラーが発生: %v", err)
		}
		if got.Quantity != 1 {
			t.Errorf("Quantity = %d, want 1", got.Quantity)
		}
	})

	t.Run("識別子が空の保存はErrValidationになること", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t, "Stock")
		err := s.Put(context.Background(), "", testItem{})
		if !errors.Is(err, failure.ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	})
}

// TestTablePartition は論理テーブルが互いに独立していることを検証する。
func TestTablePartition(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	stock, err := New(ctx, db, "Stock")
	if err != nil {
		t.Fatalf("New(Stock)でエラーが発生: %v", err)
	}
	orders, err := New(ctx, db, "Orders")
	if err != nil {
		t.Fatalf("New(Orders)でエラーが発生: %v", err)
	}

	if err := stock.Put(ctx, "shared", testItem{ID: "shared", Quantity: 1}); err != nil {
		t.Fatalf("Put()でエラーが発生: %v", err)
	}
	var got testItem
	if err := orders.Get(ctx, "shared", &got); !errors.Is(err, failure.ErrNotFound) {
		t.Errorf("別テーブルから取得できてしまった: err = %v", err)
	}
	if err := orders.Put(ctx, "shared", testItem{ID: "shared", Quantity: 2}); err != nil {
		t.Errorf("別テーブルへの同じ識別子の保存に失敗: %v", err)
	}
}
