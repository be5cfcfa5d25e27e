// Package model はドメインモデルを定義する。
package model

import "time"

// User はサイトの利用ユーザーを表す。
// IDはOAuthプロバイダーが発行した外部IDで、作成後は変更しない。
type User struct {
	ID        string
	Firstname string
	Lastname  string
	Email     string
	CreatedAt time.Time
}

// NewUser は外部IDから名前・メールが空のユーザーを生成する。
// 初回のOAuthコールバックで作成されるユーザーの初期状態。
func NewUser(externalID string, now time.Time) *User {
	return &User{
		ID:        externalID,
		CreatedAt: now,
	}
}
