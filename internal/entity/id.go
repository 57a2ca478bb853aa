package entity

import "fmt"

// ID непрозрачный дескриптор сущности: индекс слота и поколение.
// После удаления сущности поколение слота растёт, поэтому устаревшие
// дескрипторы больше никогда не разрешаются.
type ID struct {
	Index      uint32 `json:"index"`
	Generation uint32 `json:"generation"`
}

// Nil пустой идентификатор; реестр никогда его не выдаёт
var Nil = ID{}

// IsNil проверяет, что идентификатор пустой
func (id ID) IsNil() bool {
	return id.Generation == 0
}

// String для логов: [idx:gen]
func (id ID) String() string {
	return fmt.Sprintf("[%d:%d]", id.Index, id.Generation)
}
