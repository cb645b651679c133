package click

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MD5 and SHA-1 are mandated by Click's legacy wire contract; they carry no
// security weight beyond matching the provider's digests.

// AuthHeader builds the time-boxed Auth header for outbound merchant API
// calls: merchant_user_id:sha1(timestamp + secret):timestamp.
func AuthHeader(creds Credentials, now time.Time) string {
	timestamp := strconv.FormatInt(now.Unix(), 10)
	digest := sha1.Sum([]byte(timestamp + creds.SecretKey))
	return fmt.Sprintf("%s:%s:%s", creds.MerchantUserID, hex.EncodeToString(digest[:]), timestamp)
}

// SignPrepare computes the callback signature for the prepare phase. Field
// order is fixed by the provider contract; values contribute exactly as
// received on the wire.
func SignPrepare(secretKey, clickTransID, serviceID, merchantTransID, amount, action, signTime string) string {
	return sign(secretKey, clickTransID, serviceID, merchantTransID, amount, action, signTime)
}

// SignComplete computes the callback signature for the complete phase.
// merchantPrepareID contributes the empty string when absent and errorCode
// contributes "0" when absent, matching the provider's signing rules.
func SignComplete(secretKey, clickTransID, merchantTransID, merchantPrepareID, errorCode, signTime string) string {
	if errorCode == "" {
		errorCode = "0"
	}
	return sign(secretKey, clickTransID, merchantTransID, merchantPrepareID, errorCode, signTime)
}

// VerifySignature compares a computed digest against the caller-supplied
// sign_string in constant time.
func VerifySignature(expected, provided string) bool {
	expected = strings.ToLower(strings.TrimSpace(expected))
	provided = strings.ToLower(strings.TrimSpace(provided))
	if len(expected) != len(provided) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

func sign(secretKey string, fields ...string) string {
	digest := md5.Sum([]byte(strings.Join(fields, "") + secretKey))
	return hex.EncodeToString(digest[:])
}
