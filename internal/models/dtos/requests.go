package dtos

type SignupReq struct {
	Name     string `json:"name"`
	UserType string `json:"user_type"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RefCode  string `json:"ref_code"`
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type FederatedSignupReq struct {
	IDToken  string `json:"id_token"`
	UserType string `json:"user_type"`
	RefCode  string `json:"ref_code"`
}

type FederatedLoginReq struct {
	IDToken string `json:"id_token"`
}

type EmailReq struct {
	Email string `json:"email"`
}

type ActivateAccountReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type VerifyCodeReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Type  string `json:"type"`
}

type ResetPasswordReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type ChangePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}
