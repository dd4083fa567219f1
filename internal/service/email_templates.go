package service

import "fmt"

func verificationEmailTemplate(name, verifyURL, appName string) (string, string) {
	subject := "Email verification!"
	body := fmt.Sprintf(`Hi %s,

Please click the link below to verify your email address:
%s

If you didn't request this, you can safely ignore this email.

Best,
The %s Team`, name, verifyURL, appName)

	return subject, body
}
