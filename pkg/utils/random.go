package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateID создает случайный ID из 16 hex-символов (задачи и соединения мока)
func GenerateID() string {
	return GenerateIDN(8)
}

// GenerateIDN - то же, но из n случайных байт (2n символов)
func GenerateIDN(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("failed to generate random ID: " + err.Error())
	}
	return hex.EncodeToString(b)
}
