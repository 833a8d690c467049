package domain

var Tables = []interface{}{
	&User{},
	&Session{},
	&Message{},
	&ApiKey{},
}
