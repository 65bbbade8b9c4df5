// Package cli はリレー運用CLI（relayctl）のコマンドを提供する。
//
// ゲートウェイ用の認証情報の発行と、内部サービスのリソースポリシーの生成・検証を行う。
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions は全コマンド共通のフラグ。
type RootOptions struct {
	// Format は出力形式（text / json）。
	Format string
}

// ValidFormats は指定できる出力形式。
var ValidFormats = []string{"text", "json"}

// NewRootCommand はrelayctlのルートコマンドを生成する。
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "relayctl",
		Short: "tradegate のリレー運用ツール",
		Long:  "公開ゲートウェイの認証情報の発行と、内部サービスのリソースポリシーの生成・検証を行う。",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("出力形式 %q は不正です: %v のいずれかを指定してください", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "出力形式 (text|json)")

	cmd.AddCommand(NewCredentialsCommand(opts))
	cmd.AddCommand(NewPolicyCommand(opts))

	return cmd
}

// writeJSON は値をインデント付きJSONで出力する。
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
