// Scene catalog API
//
// Serves the scene metadata queries issued by the overlay
// server: given a collection path and a time window, return the
// observation passes recorded in the postgres scenes table.

package main

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/nci/gomemcache/memcache"
)

var (
	db       *sql.DB
	mc       *memcache.Client
	dbName   = flag.String("database", "scenes", "database name")
	dbUser   = flag.String("user", "api", "database user name")
	dbPool   = flag.Int("pool", 8, "database pool size")
	dbLimit  = flag.Int("limit", 64, "database concurrent requests")
	httpPort = flag.Int("port", 8080, "http port")
	mcURI    = flag.String("memcache", "", "memcache uri host:port")
)

const isoFormat = "2006-01-02T15:04:05.000Z"

type sceneRecord struct {
	DateFrom    time.Time `json:"date_from"`
	DateTo      time.Time `json:"date_to"`
	GranulePath string    `json:"granule_path,omitempty"`
}

// Spit out a simple JSON-formatted error message for Content-Type: application/json
func httpJSONError(response http.ResponseWriter, err error, status int) {
	http.Error(response, fmt.Sprintf(`{ "error": %q }`, err.Error()), status)
}

func handler(response http.ResponseWriter, request *http.Request) {

	response.Header().Set("Content-Type", "application/json")

	var hash string

	if mc != nil {

		buff := md5.Sum([]byte(request.URL.RequestURI()))
		hash = hex.EncodeToString(buff[:])

		if cached, ok := mc.Get(hash); ok == nil {
			response.Write(cached.Value)
			return
		}
	}

	query := request.URL.Query()

	if _, ok := query["scenes"]; ok {

		// Prepared statement placeholders for input checks. The
		// nullif() noise coerces Go's empty string zero values for
		// missing parameters into proper null arguments, which
		// disable the corresponding filter.

		rows, err := db.Query(
			`select date_from, date_to, coalesce(granule_path, '')
			from scenes
			where collection = $1
			and ($2 = '' or date_from >= nullif($2,'')::timestamptz)
			and ($3 = '' or date_to <= nullif($3,'')::timestamptz)
			order by date_from`,
			request.URL.Path,
			request.FormValue("time"),
			request.FormValue("until"),
		)
		if err != nil {
			httpJSONError(response, err, 400)
			return
		}
		defer rows.Close()

		scenes := []sceneRecord{}
		for rows.Next() {
			var rec sceneRecord
			err = rows.Scan(&rec.DateFrom, &rec.DateTo, &rec.GranulePath)
			if err != nil {
				httpJSONError(response, err, 500)
				return
			}
			scenes = append(scenes, rec)
		}
		if err = rows.Err(); err != nil {
			httpJSONError(response, err, 500)
			return
		}

		payload, err := json.Marshal(struct {
			Scenes []sceneRecord `json:"scenes"`
		}{Scenes: scenes})
		if err != nil {
			httpJSONError(response, err, 500)
			return
		}

		response.Write(payload)

		if mc != nil {
			// don't care about errors; memcache may not necessarily retain this anyway
			mc.Set(&memcache.Item{Key: hash, Value: payload})
		}

		return
	}

	httpJSONError(response, errors.New("unknown operation; currently supported: ?scenes"), 400)
}

func main() {

	flag.Parse()

	log.Printf("dbUser %s dbName %s dbPool %d httpPort %d", *dbUser, *dbName, *dbPool, *httpPort)

	dbinfo := fmt.Sprintf("user=%s host=/var/run/postgresql dbname=%s sslmode=disable", *dbUser, *dbName)

	var err error
	db, err = sql.Open("postgres", dbinfo)

	if err != nil {
		panic(err)
	}

	defer db.Close()

	db.SetMaxIdleConns(*dbPool)
	db.SetMaxOpenConns(*dbLimit)

	if *mcURI != "" {
		// lazy connection; errors returned in .Get
		mc = memcache.New(*mcURI)
	}

	http.HandleFunc("/", handler)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", *httpPort), nil))
}
