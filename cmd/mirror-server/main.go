package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gin-gonic/gin"
)

var validKey = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// mirror-server serves <dir>/<key>.json at GET /characters/<key> so that
// url-based data sources can be tried locally.
func main() {
	var (
		dir  = flag.String("dir", "configs/data", "directory holding <key>.json files")
		addr = flag.String("addr", ":9000", "listen address")
	)
	flag.Parse()

	router := gin.Default()
	router.GET("/characters/:key", func(c *gin.Context) {
		key := c.Param("key")
		if !validKey.MatchString(key) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key"})
			return
		}

		b, err := os.ReadFile(filepath.Join(*dir, key+".json"))
		if err != nil {
			if os.IsNotExist(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown source"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read source: " + err.Error()})
			return
		}
		// validate JSON so a bad file doesn't silently break the loader
		var tmp []json.RawMessage
		if err := json.Unmarshal(b, &tmp); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid JSON array: " + err.Error()})
			return
		}

		c.Data(http.StatusOK, "application/json", b)
	})

	log.Printf("mirror-server listening on %s (dir %s)", *addr, *dir)
	log.Fatal(router.Run(*addr))
}
