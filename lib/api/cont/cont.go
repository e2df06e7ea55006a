package cont

import "context"

type ctxKey string

const sessionTokenKey ctxKey = "sessionToken"

func PutToken(c context.Context, token string) context.Context {
	return context.WithValue(c, sessionTokenKey, token)
}

func GetToken(c context.Context) string {
	token, ok := c.Value(sessionTokenKey).(string)
	if !ok {
		return ""
	}
	return token
}
