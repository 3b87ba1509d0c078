package resputil

type ErrorCode int

const (
	OK ErrorCode = 0

	// General
	InvalidRequest ErrorCode = 40001

	// Token
	TokenExpired ErrorCode = 40101
	TokenInvalid ErrorCode = 40102

	// Login
	InvalidCredentials ErrorCode = 40106

	// User is not allowed to access the resource
	UserNotAllowed ErrorCode = 40301

	// Resource not found
	NotFound ErrorCode = 40401

	// Workflow rejections, one code per kind so the frontend can branch
	InvalidTransition  ErrorCode = 40901
	StaleState         ErrorCode = 40902
	PreconditionFailed ErrorCode = 40903
	ConsultationClosed ErrorCode = 40904

	// Indicates laziness of the developer
	// Frontend will directly print the message without any translation
	NotSpecified ErrorCode = 99999
)
