package handler

const (
	errInternalServer  = "Internal server error"
	errValidation      = "The given data was invalid."
	errMalformedBody   = "Malformed JSON request body"
	errInvalidDomain   = "Invalid email domain."
	errEmailNotFound   = "Email not found"
	errPasswordWrong   = "Password is incorrect"
	errTooManyAttempts = "Too many login attempts. Please try again later."
	errUnauthenticated = "Unauthenticated."

	msgUserCreated  = "User created successfully"
	msgLoginSuccess = "Login successful"
	msgLoggedOut    = "Logged out"
)
