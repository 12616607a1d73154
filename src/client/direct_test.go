package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/apimgr/weatherio/src/models"
	"github.com/apimgr/weatherio/src/render"
)

// fakeOpenWeather serves the five OpenWeatherMap endpoints
func fakeOpenWeather(t *testing.T, failCurrent bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/data/2.5/weather", func(w http.ResponseWriter, r *http.Request) {
		if failCurrent {
			http.Error(w, `{"cod":401,"message":"Invalid API key"}`, http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"weather":[{"description":"light rain","icon":"10d"}],
			"main":{"temp":15.4,"feels_like":13.8,"pressure":1012,"humidity":81},
			"visibility":8500,"dt":1719792000,"sys":{"sunrise":1719806400,"sunset":1719866400},"timezone":0}`)
	})
	mux.HandleFunc("/data/2.5/air_pollution", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"list":[{"main":{"aqi":2},"components":{"co":201.94,"no2":12.5,"o3":68.66,"so2":1.4,"pm2_5":3.2}}]}`)
	})
	mux.HandleFunc("/data/2.5/forecast", func(w http.ResponseWriter, r *http.Request) {
		var list []string
		for i := 0; i < 40; i++ {
			list = append(list, fmt.Sprintf(`{"dt":%d,"main":{"temp":20,"temp_max":22},"weather":[{"description":"clear sky","icon":"01d"}],"wind":{"speed":2,"deg":180}}`,
				1719792000+i*3*3600))
		}
		fmt.Fprintf(w, `{"list":[%s],"city":{"timezone":0}}`, strings.Join(list, ","))
	})
	mux.HandleFunc("/geo/1.0/reverse", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name":"London","country":"GB","lat":51.5,"lon":-0.12}]`)
	})
	mux.HandleFunc("/geo/1.0/direct", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("appid") != "test-key" {
			t.Errorf("missing credential in %s", r.URL)
		}
		fmt.Fprint(w, `[{"name":"Paris","country":"FR","state":"Ile-de-France","lat":48.8566,"lon":2.3522}]`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestDirect(t *testing.T, failCurrent bool) *Direct {
	srv := fakeOpenWeather(t, failCurrent)
	config := DefaultConfig()
	config.APIKey = "test-key"
	config.BaseURL = srv.URL
	return NewDirect(config, render.NewTerminalFor(io.Discard))
}

func TestDirectWeather(t *testing.T) {
	d := newTestDirect(t, false)
	coords := models.Coordinates{Latitude: 51.5, Longitude: -0.12}

	out, err := d.Weather(context.Background(), coords, FormatPlain)
	if err != nil {
		t.Fatalf("Weather() error = %v", err)
	}
	for _, want := range []string{"15°C", "Light Rain", "London, GB"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = d.Weather(context.Background(), coords, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Route  string `json:"route"`
		Result struct {
			State string `json:"state"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc.Route != "#/weather?lat=51.5&lon=-0.12" || doc.Result.State != "ready" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestDirectWeatherFailure(t *testing.T) {
	d := newTestDirect(t, true)

	_, err := d.Weather(context.Background(), models.Coordinates{Latitude: 1, Longitude: 2}, FormatPlain)
	if exitCode(err) != ExitUnavailable {
		t.Errorf("err = %v, want exit code %d", err, ExitUnavailable)
	}
}

func TestDirectSearch(t *testing.T) {
	d := newTestDirect(t, false)

	results, err := d.Search(context.Background(), "Paris")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Subtitle != "Ile-de-France FR" || results[0].Href != "#/weather?lat=48.8566&lon=2.3522" {
		t.Errorf("results = %+v", results)
	}
}
