// Command lmsctl служебная утилита оператора LMS: миграции, роли,
// разблокировка пользователей и ручной запуск фоновых задач.
package main

import (
	"os"
)

func main() {
	e := &env{}
	err := newRootCmd(e).Execute()
	e.close()
	if err != nil {
		os.Exit(1)
	}
}
