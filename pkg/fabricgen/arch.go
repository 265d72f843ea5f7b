package fabricgen

// ArchText is the architecture matching generated devices: logic tiles
// with two fracturable logic elements behind a full crossbar, I/O tiles,
// and a carry chain linking each logic tile to the one above it.
const ArchText = `# fabricgen architecture
circuit_model mux_tree type=mux structure=tree default;
circuit_model mux_2level type=mux structure=multi_level levels=2 const_input;
circuit_model direct_wire type=wire default;
circuit_model L1_wire type=chan_wire;
circuit_model lut4 type=lut;
circuit_model dff type=ff;
circuit_model pad type=iopad;

switch L1_mux model=mux_2level;
switch ipin_cblock model=mux_tree;
switch delayless model=direct_wire;
segment L1 model=L1_wire;

pb_type io model=pad {
	output inpad;
	input outpad;
}

pb_type clb physical_mode=physical {
	input I[4];
	output O[2];
	input cin;
	output cout;
	mode physical {
		pb_type fle num_pb=2 {
			input in[4];
			input cin;
			output out;
			output cout;
			mode n1_lut4 {
				pb_type lut4 model=lut4 {
					input in[4];
					output out;
				}
				pb_type ff model=dff {
					input D;
					output Q;
				}
				interconnect lut_in type=direct inputs="fle.in" outputs="lut4.in";
				interconnect ff_in type=direct inputs="lut4.out" outputs="ff.D";
				interconnect out_sel type=mux inputs="lut4.out ff.Q" outputs="fle.out";
				interconnect carry type=direct inputs="fle.cin" outputs="fle.cout";
			}
		}
		interconnect crossbar type=complete inputs="clb.I fle.out" outputs="fle.in";
		interconnect clb_out type=direct inputs="fle.out" outputs="clb.O";
	}
	mode packed {
		pb_type ble num_pb=2 model=lut4 physical="clb[physical].fle" {
			input in[4];
			output out;
		}
		interconnect crossbar type=complete inputs="clb.I ble.out" outputs="ble.in";
		interconnect clb_out type=direct inputs="ble.out" outputs="clb.O";
	}
}

direct carry_chain from=clb.cout to=clb.cin dx=0 dy=1 model=direct_wire;

simulation {
	clock_frequency=auto;
	slack=0.2;
	num_clock_cycles=auto;
	programming_clock_frequency=100e6;
}
`
