package config

var defaults = map[string]any{
	"secret":           "",
	"reader_token_ttl": 60,
	"log_level":        "info",

	"listen_addr": ":8080",
	"base_url":    "/",

	"storage_timeout": 5,

	"borrower_window":      90,
	"sweep_interval":       120,
	"reminder_interval":    360,
	"loan_days":            7,
	"require_reader_token": false,

	"email_host":     "host.docker.internal",
	"email_port":     25,
	"email_username": "",
	"email_password": "",
	"email_from":     "noreply@example.com",

	"storage.type":       "sqlite",
	"storage.local.path": "./data/storage.db",
}

func Defaults() map[string]any {
	values := make(map[string]any)
	for k, v := range defaults {
		values[k] = v
	}
	return values
}
