package shared

// PaymentTokenLockKey guards the M-Pesa access token refresh across instances.
const PaymentTokenLockKey = "pos:lock:mpesa:token"
