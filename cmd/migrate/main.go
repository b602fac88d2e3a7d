package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/plclassificados/marketplace/internal/pkg/env"
)

func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	user := env.GetEnv("DB_USER", "marketplace")
	host := env.GetEnv("DB_HOST", "db")
	port := env.GetEnv("DB_PORT", "3306")
	name := env.GetEnv("DB_NAME", "marketplace")

	dbURL := fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true&parseTime=true",
		user, env.GetEnv("DB_PASSWORD", "marketplace"), host, port, name)
	log.Printf("Conectando ao banco: %s@%s:%s/%s", user, host, port, name)

	m, err := migrate.New("file://"+env.GetEnv("MIGRATIONS_DIR", "migrations"), dbURL)
	if err != nil {
		log.Fatalf("Falha ao inicializar migrações: %v", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Printf("Falha ao fechar recursos de migração: %v, %v", sourceErr, dbErr)
		}
	}()

	switch os.Args[1] {
	case "up":
		err := m.Up()
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			log.Println("Nenhuma alteração: banco já está atualizado")
		case err != nil:
			log.Fatalf("Falha ao aplicar migrações: %v", err)
		default:
			log.Println("Migrações aplicadas")
		}

	case "down":
		if err := m.Steps(-1); err != nil {
			log.Fatalf("Falha ao reverter a última migração: %v", err)
		}
		log.Println("Última migração revertida")

	case "goto":
		if len(os.Args) < 3 {
			log.Fatalf("Informe o número da versão")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("Versão inválida: %v", err)
		}
		err = m.Migrate(uint(version))
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			log.Printf("Nenhuma alteração: banco já está na versão %d", version)
		case err != nil:
			log.Fatalf("Falha ao migrar para a versão %d: %v", version, err)
		default:
			log.Printf("Migrado para a versão %d", version)
		}

	case "status":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Println("Nenhuma migração aplicada ainda")
			return
		}
		if err != nil {
			log.Fatalf("Falha ao ler a versão: %v", err)
		}
		suffix := ""
		if dirty {
			suffix = " (dirty)"
		}
		log.Printf("Versão atual: %d%s", version, suffix)

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Uso: go run cmd/migrate/main.go [comando]")
	fmt.Println("Comandos:")
	fmt.Println("  up     - aplica todas as migrações pendentes")
	fmt.Println("  down   - reverte a última migração")
	fmt.Println("  goto N - migra para a versão N")
	fmt.Println("  status - mostra a versão atual")
}
