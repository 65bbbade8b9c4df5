package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/tradegate/pkg/failure"
	"github.com/nao1215/tradegate/pkg/migration"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrDuplicate は同じ識別子のエンティティが既に存在することを表す。
var ErrDuplicate = errors.New("同じ識別子のエンティティが既に存在します")

// Store は論理テーブル単位のエンティティストア。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
	// table は論理テーブル名。
	table string
}

// Open はSQLiteデータベースを開き、マイグレーションを適用したStoreを返す。
// pathに ":memory:" を指定するとインメモリDBを使用する。
func Open(ctx context.Context, path, table string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if strings.Contains(path, ":memory:") {
		// インメモリDBは接続ごとに別のDBになるため1接続に固定する
		db.SetMaxOpenConns(1)
	}

	s, err := New(ctx, db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New は既存のDB接続からStoreを生成する。マイグレーションも適用する。
func New(ctx context.Context, db *sql.DB, table string) (*Store, error) {
	if table == "" {
		return nil, fmt.Errorf("テーブル名が未設定: %w", failure.ErrValidation)
	}
	if err := migration.Run(ctx, db, migrations, "migrations"); err != nil {
		return nil, fmt.Errorf("マイグレーションに失敗: %w", err)
	}
	return &Store{db: db, table: table}, nil
}

// Table は論理テーブル名を返す。
func (s *Store) Table() string {
	return s.table
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// Put はエンティティをJSONにシリアライズして保存する。
// 同じ識別子が既に存在する場合は ErrDuplicate を返し、既存のエンティティは変更しない。
func (s *Store) Put(ctx context.Context, id string, item any) error {
	if id == "" {
		return fmt.Errorf("識別子が未設定: %w", failure.ErrValidation)
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("エンティティのシリアライズに失敗: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO items (table_name, id, item) VALUES (?, ?, ?) ON CONFLICT (table_name, id) DO NOTHING",
		s.table, id, string(data),
	)
	if err != nil {
		return fmt.Errorf("エンティティの保存に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("保存結果の取得に失敗: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("id=%s: %w", id, ErrDuplicate)
	}
	return nil
}

// Get は識別子でエンティティを取得し、dstにデシリアライズする。
// 存在しない場合は failure.ErrNotFound をラップしたエラーを返す。
func (s *Store) Get(ctx context.Context, id string, dst any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT item FROM items WHERE table_name = ? AND id = ?",
		s.table, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("id=%s: %w", id, failure.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("エンティティの取得に失敗: %w", err)
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return fmt.Errorf("エンティティのデシリアライズに失敗: %w", err)
	}
	return nil
}
