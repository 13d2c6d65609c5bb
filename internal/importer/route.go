package importer

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/tcdata/railnet/internal/models"
)

// RouteFormat is the dialect of the train path planner export
var RouteFormat = Format{Delimiter: ';', Charset: charmap.Windows1252, Header: true}

const passengerStop = "Kundenhalt"

// RouteWaypoints reads a train path planner export: the distance from the
// start, the operating point code, the route number towards the next point
// and the stop kind. Only points with a passenger stop become path ends.
func (im *Importer) RouteWaypoints(r io.Reader) ([]models.Waypoint, error) {
	return parse(r, RouteFormat, im.with("route"),
		func(row Row) (models.Waypoint, bool, error) {
			code := strings.ReplaceAll(row.At(2), "  ", " ")
			if code == "" {
				return models.Waypoint{}, false, fmt.Errorf("missing code")
			}
			distance, err := row.Float(0)
			if err != nil {
				return models.Waypoint{}, false, fmt.Errorf("distance: %w", err)
			}
			wp := models.Waypoint{
				Code:     code,
				Distance: distance,
				Stop:     strings.Contains(row.At(17), passengerStop),
			}
			if row.At(3) != "" {
				if wp.NextRoute, err = row.Int(3); err != nil {
					return models.Waypoint{}, false, fmt.Errorf("route number: %w", err)
				}
			}
			return wp, true, nil
		})
}
