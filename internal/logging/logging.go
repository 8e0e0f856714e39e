package logging

import (
	"io"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/axellelanca/quickpath/internal/config"
)

// Setup redirige le package log et le logger de Gin vers la sortie standard et,
// si cfg.File est renseigné, vers un fichier à rotation gérée par lumberjack.
// Le io.Closer retourné ferme le fichier ; il ne fait rien sans fichier.
func Setup(cfg config.LogConfig) (io.Writer, io.Closer) {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if cfg.File == "" {
		log.SetOutput(os.Stdout)
		gin.DefaultWriter = os.Stdout
		return os.Stdout, nopCloser{}
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}

	w := io.MultiWriter(os.Stdout, rotating)
	log.SetOutput(w)
	gin.DefaultWriter = w
	gin.DefaultErrorWriter = w

	log.Printf("Logging to stdout and %s", cfg.File)
	return w, rotating
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
