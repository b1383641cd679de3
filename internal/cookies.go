package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "vh_access_token"
	COOKIE_REDIRECT_NAME     = "vh_redirect"
	COOKIE_SIGNED_OUT_NAME   = "vh_signed_out"
)
