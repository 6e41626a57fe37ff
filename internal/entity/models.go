package entity

// Models lists every table owned by this service, in migration order.
func Models() []any {
	return []any{
		&User{},
		&Profile{},
		&Project{},
		&ProjectMember{},
		&ConnectionRequest{},
		&Notification{},
	}
}
