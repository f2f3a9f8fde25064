package domain

// Entity is implemented by every row-backed type the persistence session can write.
type Entity interface {
	TableName() string
	GetID() int64
}
