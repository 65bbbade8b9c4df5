package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/tradegate/pkg/policy"
)

// ErrDenied はポリシー評価で拒否されたことを表す。終了コードを非ゼロにするために返す。
var ErrDenied = errors.New("リクエストは拒否されます")

// checkOutput はポリシー評価結果の出力形式。
type checkOutput struct {
	Decision   string `json:"decision"`
	Reason     string `json:"reason,omitempty"`
	MatchedSid string `json:"matchedSid,omitempty"`
	Resource   string `json:"resource"`
}

// NewPolicyCommand はリソースポリシーコマンドを生成する。
func NewPolicyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "内部サービスのリソースポリシーを扱う",
	}
	cmd.AddCommand(newPolicyDefaultCommand())
	cmd.AddCommand(newPolicyValidateCommand(rootOpts))
	cmd.AddCommand(newPolicyCheckCommand(rootOpts))
	return cmd
}

// grantFlags はGrantをフラグにバインドする。
func grantFlags(cmd *cobra.Command, g *policy.Grant) {
	cmd.Flags().StringVar(&g.Region, "region", "eu-west-1", "APIのリージョン")
	cmd.Flags().StringVar(&g.Account, "account", "", "APIを所有するアカウントID")
	cmd.Flags().StringVar(&g.APIID, "api-id", "", "REST APIの識別子")
	cmd.Flags().StringVar(&g.Stage, "stage", "prod", "デプロイステージ")
}

// newPolicyDefaultCommand は既定ポリシー生成コマンドを生成する。
func newPolicyDefaultCommand() *cobra.Command {
	var g policy.Grant

	cmd := &cobra.Command{
		Use:   "default",
		Short: "ドメインAPIの既定ポリシーをYAMLで出力する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc := policy.Default(g)
			if err := doc.Validate(); err != nil {
				return fmt.Errorf("生成したポリシーが不正です: %w", err)
			}
			data, err := policy.Marshal(doc)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	grantFlags(cmd, &g)
	cmd.Flags().StringVar(&g.BasePath, "base-path", "", "ドメインのベースパス（例: /orders）")
	cmd.Flags().StringVar(&g.Principal, "principal", "", "呼び出しを許可するアカウントID")
	for _, name := range []string{"account", "api-id", "base-path", "principal"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// newPolicyValidateCommand はポリシーファイル検証コマンドを生成する。
func newPolicyValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <policy.yaml>",
		Short: "ポリシーファイルを検証する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := policy.Load(args[0])
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"valid": true, "statements": len(doc.Statements)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d statement(s)\n", len(doc.Statements))
			return nil
		},
	}
}

// newPolicyCheckCommand はポリシー評価コマンドを生成する。
func newPolicyCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		g      policy.Grant
		method string
		path   string
	)

	cmd := &cobra.Command{
		Use:   "check <policy.yaml>",
		Short: "リクエストがポリシーで許可されるかを評価する",
		Long: `ポリシーファイルに対してリクエストを評価し、許可か拒否かを出力する。
拒否された場合は非ゼロで終了する。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := policy.Load(args[0])
			if err != nil {
				return err
			}

			req := policy.Request{
				Principal: g.Principal,
				Action:    policy.ActionInvoke,
				Region:    g.Region,
				Account:   g.Account,
				APIID:     g.APIID,
				Stage:     g.Stage,
				Method:    method,
				Path:      path,
			}
			result := policy.Evaluate(doc, req)

			out := checkOutput{
				Decision:   result.Decision.String(),
				MatchedSid: result.MatchedSid,
				Resource: policy.Resource{
					Region: g.Region, Account: g.Account, APIID: g.APIID,
					Stage: g.Stage, Method: method, Path: path,
				}.String(),
			}
			if !result.Allowed() {
				out.Reason = result.Reason.String()
			}

			if rootOpts.Format == "json" {
				if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s", out.Decision, out.Resource)
				if out.MatchedSid != "" {
					fmt.Fprintf(cmd.OutOrStdout(), " (sid=%s)", out.MatchedSid)
				}
				if out.Reason != "" {
					fmt.Fprintf(cmd.OutOrStdout(), " (reason=%s)", out.Reason)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}

			if !result.Allowed() {
				return ErrDenied
			}
			return nil
		},
	}

	grantFlags(cmd, &g)
	cmd.Flags().StringVar(&g.Principal, "principal", "", "呼び出し元のアカウントID")
	cmd.Flags().StringVar(&method, "method", "GET", "HTTPメソッド")
	cmd.Flags().StringVar(&path, "path", "", "ステージを除いたリクエストパス（例: /orders/123）")
	for _, name := range []string{"account", "api-id", "principal", "path"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
