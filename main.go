package main

import (
	"github.com/xiagw/mysql-export/cmd"
)

func main() {
	cmd.Execute()
}
