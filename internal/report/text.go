// Package report renders computed profiles: the fixed-width text table
// written by the vol2bird command and the optional plot, chart and
// workbook files.
package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/bmvandoren/vol2bird/internal/profile"
	"github.com/bmvandoren/vol2bird/internal/version"
)

// Header is the first stdout line of the table.
const Header = "# Date   Time Heig    U      V       W   Speed Direc StdDev Gap dBZ     eta DensBird dBZAll   n   ndBZ  nAll nAlldBZ"

const rowFormat = "%4.0f %6.2f %6.2f %7.2f %5.2f %5.1f %6.2f %c %6.2f %6.1f %6.2f %6.2f %5.0f %5.0f %5.0f %5.0f"

// WriteUsage prints the command synopsis and the output field legend.
func WriteUsage(w io.Writer, program string) {
	fmt.Fprintf(w, "usage: %s [flags] <polar volume>\n", program)
	fmt.Fprintf(w, "   Version %s\n", version.String())
	fmt.Fprintf(w, "   expects a polar volume document (JSON rendering of the ODIM layout)\n\n")
	fmt.Fprintf(w, "   Output fields to stdout:\n")
	fmt.Fprintf(w, "   Date    - date in UTC\n")
	fmt.Fprintf(w, "   Time    - time in UTC\n")
	fmt.Fprintf(w, "   Heig    - height bin centre [m]\n")
	fmt.Fprintf(w, "   U       - speed component west to east [m/s]\n")
	fmt.Fprintf(w, "   V       - speed component south to north [m/s]\n")
	fmt.Fprintf(w, "   W       - vertical speed (unreliable!) [m/s]\n")
	fmt.Fprintf(w, "   Speed   - horizontal speed [m/s]\n")
	fmt.Fprintf(w, "   Direc   - direction [degrees, clockwise from north]\n")
	fmt.Fprintf(w, "   StdDev  - VVP radial velocity standard deviation [m/s]\n")
	fmt.Fprintf(w, "   Gap     - Angular data gap detected [T/F]\n")
	fmt.Fprintf(w, "   dBZ     - Bird reflectivity factor [dBZ]\n")
	fmt.Fprintf(w, "   eta     - Bird reflectivity [cm^2/km^3]\n")
	fmt.Fprintf(w, "   DensBird- Bird density [birds/km^3]\n")
	fmt.Fprintf(w, "   dBZAll  - Total reflectivity factor (bio+meteo scattering) [dBZ]\n")
	fmt.Fprintf(w, "   n       - number of points VVP bird velocity analysis\n")
	fmt.Fprintf(w, "   ndBZ    - number of points bird density estimate\n")
	fmt.Fprintf(w, "   nAll    - number of points VVP velocity Stdev analysis\n")
}

// WriteBanner prints the metadata lines that precede the table.
func WriteBanner(w io.Writer, source, path string) {
	fmt.Fprintf(w, "# vol2bird vertical profile\n")
	fmt.Fprintf(w, "# source: %s\n", source)
	fmt.Fprintf(w, "# polar volume input: %s\n", path)
}

// FormatRow renders one height bin. Most values come from the bio row;
// direction, density, reflectivity and point count of all scatterers come
// from the all row.
func FormatRow(date, tm string, bio, all profile.Row) string {
	gap := 'F'
	if bio.Gap() {
		gap = 'T'
	}
	prefix := fmt.Sprintf("%8s %.4s ", date, tm)
	return prefix + fmt.Sprintf(rowFormat,
		bio.Height(),
		bio.U(), bio.V(), bio.W(),
		bio.Speed(), bio.Direction(),
		all.DirectionAll(),
		gap,
		bio.StdDev(), bio.Dbz(), bio.Density(),
		all.DensityAll(),
		bio.Eta(), bio.NPoints(),
		all.DbzAll(), all.NPointsAll(),
	)
}

// WriteTable writes the header and one line per height bin. Nothing is
// written when the matrices disagree on their bins.
func WriteTable(w io.Writer, date, tm string, bio, all *profile.Matrix) error {
	if bio.Variant() != profile.Bio || all.Variant() != profile.All {
		return fmt.Errorf("%w: want bio and all matrices, got %s and %s", profile.ErrInvalidVariant, bio.Variant(), all.Variant())
	}
	if !profile.SameHeightBins(bio, all) {
		return fmt.Errorf("%w: bio and all height bins differ", profile.ErrShape)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, Header)
	for r := 0; r < bio.Rows(); r++ {
		fmt.Fprintln(bw, FormatRow(date, tm, bio.Row(r), all.Row(r)))
	}
	return bw.Flush()
}
