package department

// Department は部署の参照エンティティです。サービスからは読み取り専用です。
type Department struct {
	No   string
	Name string
}
