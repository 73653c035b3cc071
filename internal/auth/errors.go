package auth

// Response messages shared by the authorization gate.
const (
	MsgNoToken             = "Unauthorized: No token provided"
	MsgForbidden           = "Forbidden: Unauthorized access detected"
	MsgInvalidAdmin        = "Invalid admin session"
	MsgExpiredAdmin        = "Invalid or expired admin session"
	MsgInvalidManufacturer = "Invalid manufacturer session"
	MsgInvalidBuyer        = "Invalid buyer session"
)
