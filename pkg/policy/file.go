package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse はYAML形式のポリシードキュメントを読み込み、検証する。
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("ポリシードキュメントのパースに失敗: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, fmt.Errorf("ポリシードキュメントが不正です: %w", err)
	}
	return doc, nil
}

// Load は指定パスのYAMLファイルからポリシードキュメントを読み込む。
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("ポリシーファイルの読み込みに失敗: %w", err)
	}
	return Parse(data)
}

// Marshal はドキュメントをYAMLに変換する。
func Marshal(doc Document) ([]byte, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("ポリシードキュメントのシリアライズに失敗: %w", err)
	}
	return out, nil
}
