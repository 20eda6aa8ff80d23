package model

import (
	"chatrelay/platform"

	"gorm.io/gorm"
)

// Migrate runs schema migration on the given handle.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Conversation{},
		&Message{})
}

func InstallDB() {
	if err := Migrate(platform.DB); err != nil {
		panic(err)
	}
}
