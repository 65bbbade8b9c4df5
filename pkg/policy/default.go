package policy

import (
	"fmt"
	"strings"
)

// Grant は1つの内部ドメインAPIに対する本番用の許可設定。
type Grant struct {
	// Region はAPIのリージョン。
	Region string
	// Account はAPIを所有するアカウントID。
	Account string
	// APIID はREST APIの識別子。
	APIID string
	// Stage はデプロイステージ。
	Stage string
	// BasePath はドメインのベースパス（例: /orders）。
	BasePath string
	// Principal は呼び出しを許可する唯一のアカウントID。
	Principal string
}

// Default はドメインAPIの既定ポリシーを生成する。
// 許可するのは Principal からの POST {base} と GET {base}/* のみ。
func Default(g Grant) Document {
	base := strings.Trim(g.BasePath, "/")
	resource := func(method, path string) string {
		return Resource{
			Region:  g.Region,
			Account: g.Account,
			APIID:   g.APIID,
			Stage:   g.Stage,
			Method:  method,
			Path:    path,
		}.String()
	}

	return Document{
		Version: "2012-10-17",
		Statements: []Statement{
			{
				Sid:       fmt.Sprintf("Allow%sFromExperienceLayer", sidName(base)),
				Effect:    EffectAllow,
				Principal: fmt.Sprintf("arn:aws:iam::%s:root", g.Principal),
				Actions:   []string{ActionInvoke},
				Resources: []string{
					resource("GET", "/"+base+"/*"),
					resource("POST", "/"+base+"/"),
				},
			},
		},
	}
}

// sidName はベースパスをSidに使える名前に変換する。
func sidName(base string) string {
	if base == "" {
		return "Root"
	}
	return strings.ToUpper(base[:1]) + strings.ReplaceAll(base[1:], "/", "")
}
