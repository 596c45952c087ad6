package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"protokoll/internal/config"
	"protokoll/internal/server"
)

var (
	port         = flag.Int("port", 0, "Server-Port (config.toml hat Vorrang, wenn dort gesetzt)")
	devMode      = flag.Bool("dev", false, "Entwicklungsmodus")
	dataDir      = flag.String("dataDir", "", "Datenverzeichnis (überschreibt Konfiguration)")
	templatePath = flag.String("template", "", "Pfad zur Abrechnungsvorlage (überschreibt Konfiguration)")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  Protokoll - Prüfprotokoll-Abrechnung")
	fmt.Println("==========================================")

	// 加载配置
	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		log.Printf("Konfiguration nicht lesbar, verwende Standardwerte: %v", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}

	// 命令行参数覆盖配置
	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}
	if *templatePath != "" {
		cfg.Template.Path = *templatePath
	}

	// 确保数据目录存在
	dir, err := config.EnsureDataDir(cfg)
	if err != nil {
		log.Printf("Datenverzeichnis konnte nicht angelegt werden: %v", err)
	} else {
		fmt.Printf("Datenverzeichnis: %s\n", dir)
	}

	srv := server.NewServer(cfg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	go func() {
		fmt.Printf("Server startet auf Port %d ...\n", cfg.Server.Port)
		if err := srv.Run(addr); err != nil {
			log.Fatalf("Serverstart fehlgeschlagen: %v", err)
		}
	}()

	fmt.Printf("API erreichbar unter %s/api\n", url)
	fmt.Println("\nStrg+C zum Beenden ...")

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nServer wird beendet ...")
	if err := srv.Close(); err != nil {
		log.Printf("Fehler beim Schließen: %v", err)
	}
}
