package layout

import "fmt"

const lanTroubleshooting = "ERROR: Could not connect to LAN\n\n" +
	"Please check that the PosBox is correc-\n" +
	"tly connected with a network cable,\n" +
	" that the LAN is setup with DHCP, and\n" +
	"that network addresses are available"

// HomepageURL is the address the driver's web front end answers on
func HomepageURL(address string, port int) string {
	return fmt.Sprintf("http://%s:%d", address, port)
}

// StatusTicket lays out the diagnostic ticket, cut included. An empty
// address means the lookup failed.
func StatusTicket(address string, port int) []Op {
	ops := []Op{
		TextOp{Text: "\n\n"},
		StyleOp{Style: Style{Align: AlignCenter, Bold: true, Height: 2, Width: 2}},
		TextOp{Text: "PosBox Status"},
		TextOp{Text: "\n\n"},
		StyleOp{Style: Style{Align: AlignCenter}},
	}

	if address == "" {
		ops = append(ops, TextOp{Text: lanTroubleshooting})
	} else {
		homepage := HomepageURL(address, port)
		ops = append(ops,
			TextOp{Text: "IP Address:\n" + address + "\n"},
			TextOp{Text: "\nHomepage:\n"},
			TextOp{Text: homepage + "\n"},
			QRCodeOp{Value: homepage},
		)
	}

	return append(ops, TextOp{Text: "\n\n"}, CutOp{})
}
