package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

const (
	// Algorithm は署名アルゴリズム名。
	Algorithm = "AWS4-HMAC-SHA256"
	// DefaultService は内部APIのサービス名。
	DefaultService = "execute-api"

	// HeaderDate は署名タイムスタンプのヘッダー。
	HeaderDate = "X-Amz-Date"
	// HeaderContentSHA256 はボディのSHA-256ハッシュのヘッダー。
	HeaderContentSHA256 = "X-Amz-Content-Sha256"
	// HeaderSecurityToken はセッショントークンのヘッダー。
	HeaderSecurityToken = "X-Amz-Security-Token"
	// HeaderAuthorization は署名本体のヘッダー。
	HeaderAuthorization = "Authorization"

	timeFormat      = "20060102T150405Z"
	dateFormat      = "20060102"
	scopeTerminator = "aws4_request"
)

// headerSource は正規化対象のヘッダー値を返す。
type headerSource func(name string) []string

// canonicalRequest は署名対象の正規リクエスト文字列を組み立てる。
// signed は小文字でソート済みのヘッダー名。
func canonicalRequest(method, escapedPath, rawQuery string, signed []string, values headerSource, payloadHash string) string {
	if escapedPath == "" {
		escapedPath = "/"
	}

	var headers strings.Builder
	for _, name := range signed {
		vals := values(name)
		normalized := make([]string, 0, len(vals))
		for _, v := range vals {
			normalized = append(normalized, strings.Join(strings.Fields(v), " "))
		}
		headers.WriteString(name)
		headers.WriteByte(':')
		headers.WriteString(strings.Join(normalized, ","))
		headers.WriteByte('\n')
	}

	return strings.Join([]string{
		strings.ToUpper(method),
		escapedPath,
		canonicalQuery(rawQuery),
		headers.String(),
		strings.Join(signed, ";"),
		payloadHash,
	}, "\n")
}

// canonicalQuery はクエリ文字列をキーと値の順にソートして再エンコードする。
// 空白は %20 で表す。
func canonicalQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}
	for k := range values {
		sort.Strings(values[k])
	}
	return strings.ReplaceAll(values.Encode(), "+", "%20")
}

// credentialScope は認証情報スコープを返す。
func credentialScope(date, region, service string) string {
	return strings.Join([]string{date, region, service, scopeTerminator}, "/")
}

// stringToSign は署名対象文字列を組み立てる。
func stringToSign(amzDate, scope, canonical string) string {
	return strings.Join([]string{Algorithm, amzDate, scope, hashHex([]byte(canonical))}, "\n")
}

// deriveKey はリクエストごとの署名鍵を秘密鍵から導出する。
func deriveKey(secret, date, region, service string) []byte {
	k := hmacSHA256([]byte("AWS4"+secret), date)
	k = hmacSHA256(k, region)
	k = hmacSHA256(k, service)
	return hmacSHA256(k, scopeTerminator)
}

// signature は導出鍵で署名対象文字列のHMACを計算する。
func signature(secret, date, region, service, toSign string) string {
	return hex.EncodeToString(hmacSHA256(deriveKey(secret, date, region, service), toSign))
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

// hashHex はデータのSHA-256を16進文字列で返す。
func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
