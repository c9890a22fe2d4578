package logger

import "strings"

// Contact details for refund notices (buyer phone numbers and email
// addresses) must never appear in logs in full.

// MaskEmail masks the local part of an email address, preserving the domain.
func MaskEmail(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	at := strings.LastIndex(value, "@")
	if at <= 0 {
		return maskLast4(value)
	}
	return maskLast4(value[:at]) + value[at:]
}

// MaskPhone masks a phone number, preserving only the last 4 digits.
func MaskPhone(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return maskLast4(value)
}

// MaskPaymentReference masks a processor payment reference, preserving a
// recognizable prefix (e.g. "pi_") and the last 4 characters.
func MaskPaymentReference(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if idx := strings.Index(value, "_"); idx > 0 && idx < len(value)-4 {
		return value[:idx+1] + maskLast4(value[idx+1:])
	}
	return maskLast4(value)
}

func maskLast4(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****" + value
	}
	return "****" + value[len(value)-4:]
}
