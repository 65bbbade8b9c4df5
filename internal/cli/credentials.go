package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/tradegate/pkg/identity"
)

// credentialsOutput は発行した認証情報の出力形式。
type credentialsOutput struct {
	AccessKeyID     string    `json:"accessKeyId"`
	SecretAccessKey string    `json:"secretAccessKey"`
	SessionToken    string    `json:"sessionToken"`
	Principal       string    `json:"principal"`
	Expires         time.Time `json:"expires"`
}

// NewCredentialsCommand は認証情報コマンドを生成する。
func NewCredentialsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "ゲートウェイの認証情報を管理する",
	}
	cmd.AddCommand(newCredentialsIssueCommand(rootOpts))
	return cmd
}

// newCredentialsIssueCommand は認証情報発行コマンドを生成する。
func newCredentialsIssueCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		principal string
		ttl       time.Duration
		rootKey   string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "一時認証情報を発行する",
		Long: `指定したアカウント用の一時認証情報を発行する。

内部サービスと同じルートキー（IDENTITY_ROOT_KEY）を使う。出力は text 形式では
ゲートウェイの環境変数として、json 形式ではオブジェクトとして書き出す。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			authority, err := identity.New(rootKey)
			if err != nil {
				return fmt.Errorf("認証局の初期化に失敗: %w", err)
			}
			now := time.Now()
			creds, err := authority.WithClock(func() time.Time { return now }).Issue(principal, ttl)
			if err != nil {
				return err
			}

			out := credentialsOutput{
				AccessKeyID:     creds.AccessKeyID,
				SecretAccessKey: creds.SecretAccessKey,
				SessionToken:    creds.SessionToken,
				Principal:       principal,
				Expires:         now.Add(ttl).UTC(),
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "GATEWAY_ACCESS_KEY_ID=%s\n", out.AccessKeyID)
			fmt.Fprintf(w, "GATEWAY_SECRET_ACCESS_KEY=%s\n", out.SecretAccessKey)
			fmt.Fprintf(w, "GATEWAY_SESSION_TOKEN=%s\n", out.SessionToken)
			fmt.Fprintf(cmd.ErrOrStderr(), "principal=%s expires=%s\n", out.Principal, out.Expires.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "認証情報を発行するアカウントID")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "有効期間")
	cmd.Flags().StringVar(&rootKey, "root-key", os.Getenv("IDENTITY_ROOT_KEY"), "ルートキー（既定は IDENTITY_ROOT_KEY）")
	_ = cmd.MarkFlagRequired("principal")

	return cmd
}
