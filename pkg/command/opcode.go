package command

import (
	"strconv"
	"strings"
)

// Opcode - числовой идентификатор игрового действия (младшие 8 бит токена)
type Opcode uint8

const (
	OpUnknown       Opcode = 0
	OpPlaceTower    Opcode = 1
	OpWithdrawTower Opcode = 2
	OpMintTower     Opcode = 3
	OpDropTower     Opcode = 4
	// OpUpgradeTower совпадает с OpDropTower. Значение взято как есть,
	// различить эти две команды по токену невозможно.
	OpUpgradeTower Opcode = 4
)

// Маппинг для конвертации имени -> Opcode
var opcodeByName = map[string]Opcode{
	"PLACE_TOWER":    OpPlaceTower,
	"WITHDRAW_TOWER": OpWithdrawTower,
	"MINT_TOWER":     OpMintTower,
	"DROP_TOWER":     OpDropTower,
	"UPGRADE_TOWER":  OpUpgradeTower,
}

// Маппинг Opcode -> все имена (порядок важен: первое имя - каноническое)
var namesByOpcode = map[Opcode][]string{
	OpPlaceTower:    {"PLACE_TOWER"},
	OpWithdrawTower: {"WITHDRAW_TOWER"},
	OpMintTower:     {"MINT_TOWER"},
	OpDropTower:     {"DROP_TOWER", "UPGRADE_TOWER"},
}

// ParseOpcode принимает имя команды (без учета регистра) или десятичное число.
func ParseOpcode(s string) (Opcode, error) {
	s = strings.TrimSpace(s)
	if op, ok := opcodeByName[strings.ToUpper(s)]; ok {
		return op, nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return OpUnknown, &FieldError{Field: "opcode", Value: s, Err: ErrInvalidArgument}
	}
	if n < 0 {
		return OpUnknown, &FieldError{Field: "opcode", Value: s, Err: ErrInvalidArgument}
	}
	if n > MaxOpcode {
		return OpUnknown, &FieldError{Field: "opcode", Value: s, Err: ErrOutOfRange}
	}
	return Opcode(n), nil
}

// Names возвращает все известные имена для кода.
func (o Opcode) Names() []string {
	names := namesByOpcode[o]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// IsAmbiguous сообщает, что одному коду соответствует несколько команд.
func (o Opcode) IsAmbiguous() bool {
	return len(namesByOpcode[o]) > 1
}

// String реализует интерфейс Stringer (для fmt.Printf)
func (o Opcode) String() string {
	names := namesByOpcode[o]
	switch len(names) {
	case 0:
		return "UNKNOWN(" + strconv.Itoa(int(o)) + ")"
	case 1:
		return names[0]
	default:
		return strings.Join(names, "|")
	}
}
