package department

import "errors"

var (
	// ErrStorage は永続化層の失敗を表します。
	ErrStorage = errors.New("storage failure")
)
