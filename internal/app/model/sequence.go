package model

// Sequence 연도별 채번 카운터. Value는 마지막으로 발급된 번호
type Sequence struct {
	Name  string `gorm:"primaryKey;type:varchar(32)"`
	Year  int    `gorm:"primaryKey;autoIncrement:false"`
	Value int64  `gorm:"not null;default:0"`
}

func (Sequence) TableName() string {
	return "sequences"
}
