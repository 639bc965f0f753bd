package service

import "fmt"

func verificationEmailTemplate(code, verifyURL, appName string) (string, string) {
	subject := fmt.Sprintf("%s - Activate your account", appName)
	body := fmt.Sprintf(`Your verification code is %s

Open this link and enter the code to activate your account:
%s

The code expires shortly, so use it right away. If it has expired, register again to receive a new one.

If you didn't create an account, ignore this email.

Best,
The %s Team`, code, verifyURL, appName)

	return subject, body
}

func welcomeEmailTemplate(email, appName string) (string, string) {
	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi %s,

Your email is verified and your account is active.

If you have questions, reach out to our support team.

Best,
The %s Team`, email, appName)

	return subject, body
}
