// Package mapexport renders the scored grid as an interactive Leaflet map
// and as a GeoJSON file.
package mapexport

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
)

//go:embed templates/*
var templates embed.FS

var mapTemplate = template.Must(template.New("map.html.tmpl").Funcs(template.FuncMap{
	"toJSON": func(v interface{}) (template.JS, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return template.JS(data), nil
	},
}).ParseFS(templates, "templates/map.html.tmpl"))

// mapData is what the template sees.
type mapData struct {
	Title     string
	CenterLat float64
	CenterLon float64
	Zoom      int
	Features  []Feature
	Legend    []legendEntry
}

type legendEntry struct {
	Label string
	Color string
}

// RenderMap writes the interactive map HTML for the given features.
func RenderMap(w io.Writer, title string, features []Feature) error {
	lat, lon := Center(features)

	seen := map[int]bool{}
	var legend []legendEntry
	for _, f := range features {
		if !f.HasData || seen[f.Cluster] {
			continue
		}
		seen[f.Cluster] = true
		legend = append(legend, legendEntry{
			Label: fmt.Sprintf("Cluster %d", f.Cluster),
			Color: ClusterColor(f.Cluster),
		})
	}
	legend = append(legend, legendEntry{Label: "No observations", Color: noDataColor})

	return mapTemplate.Execute(w, mapData{
		Title:     title,
		CenterLat: lat,
		CenterLon: lon,
		Zoom:      10,
		Features:  features,
		Legend:    legend,
	})
}

// WriteMap renders the map to a file.
func WriteMap(path, title string, features []Feature) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create map file: %w", err)
	}
	if err := RenderMap(f, title, features); err != nil {
		f.Close()
		return fmt.Errorf("render map: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close map file: %w", err)
	}
	return nil
}
