package command

import (
	"fmt"
	"strconv"
)

// Раскладка токена (uint64):
//
//	 63        48 47                           8 7      0
//	+------------+------------------------------+--------+
//	|   nonce    |           feature            | opcode |
//	+------------+------------------------------+--------+
const (
	OpcodeBits  = 8
	FeatureBits = 40
	NonceBits   = 64 - OpcodeBits - FeatureBits

	FeatureShift = OpcodeBits
	NonceShift   = OpcodeBits + FeatureBits

	MaxOpcode  = 1<<OpcodeBits - 1
	MaxFeature = 1<<FeatureBits - 1
	MaxNonce   = 1<<NonceBits - 1
)

// Token - упакованная команда, которая уходит в первом параметре транзакции.
//
// Token является value-type: его не хранят и не меняют, он собирается
// заново на каждую отправку.
//
// Где:
//   - nonce - счетчик команд аккаунта (защита от повтора), 16 бит
//   - feature - параметр команды (id башни, тип и т.п.), 40 бит
//   - opcode - код действия, 8 бит
//
// Поля не пересекаются, поэтому обратные маски в Decode всегда
// восстанавливают ровно то, что было закодировано.
type Token uint64

// Fields - распакованное содержимое токена.
type Fields struct {
	Nonce   uint64 `json:"nonce"`
	Opcode  Opcode `json:"opcode"`
	Feature uint64 `json:"feature"`
}

// Encode упаковывает nonce, код команды и feature в один токен.
// Поля, не влезающие в свою ширину, отклоняются с ErrOutOfRange.
func Encode(nonce, opcode, feature uint64) (Token, error) {
	if opcode > MaxOpcode {
		return 0, &FieldError{Field: "opcode", Value: strconv.FormatUint(opcode, 10), Err: ErrOutOfRange}
	}
	if feature > MaxFeature {
		return 0, &FieldError{Field: "feature", Value: strconv.FormatUint(feature, 10), Err: ErrOutOfRange}
	}
	if nonce > MaxNonce {
		return 0, &FieldError{Field: "nonce", Value: strconv.FormatUint(nonce, 10), Err: ErrOutOfRange}
	}

	return Token(nonce<<NonceShift + feature<<FeatureShift + opcode), nil
}

// EncodeInt - то же самое для знаковых входов (CLI, JSON).
// Отрицательные значения отклоняются с ErrInvalidArgument.
func EncodeInt(nonce, opcode, feature int64) (Token, error) {
	for _, f := range []struct {
		name string
		v    int64
	}{{"nonce", nonce}, {"opcode", opcode}, {"feature", feature}} {
		if f.v < 0 {
			return 0, &FieldError{Field: f.name, Value: strconv.FormatInt(f.v, 10), Err: ErrInvalidArgument}
		}
	}
	return Encode(uint64(nonce), uint64(opcode), uint64(feature))
}

// New - удобная обертка для типизированного кода команды.
func New(nonce uint64, op Opcode, feature uint64) (Token, error) {
	return Encode(nonce, uint64(op), feature)
}

// Decode применяет обратные маски.
func Decode(t Token) Fields {
	v := uint64(t)
	return Fields{
		Nonce:   v >> NonceShift,
		Opcode:  Opcode(v & MaxOpcode),
		Feature: (v >> FeatureShift) & MaxFeature,
	}
}

// ParseToken разбирает десятичную запись токена.
func ParseToken(s string) (Token, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, &FieldError{Field: "token", Value: s, Err: ErrInvalidArgument}
	}
	return Token(v), nil
}

func (t Token) Fields() Fields { return Decode(t) }

func (t Token) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

func (f Fields) String() string {
	return fmt.Sprintf("nonce=%d op=%s feature=%d", f.Nonce, f.Opcode, f.Feature)
}
