package department

import "context"

// Repository は部署の読み取りを行うインターフェースです。
type Repository interface {
	// List は全部署を部署名順に返します。
	List(ctx context.Context) ([]*Department, error)
}
