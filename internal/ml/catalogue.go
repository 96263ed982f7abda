package ml

// catalogueRows holds the hand-authored exemplars, eight per signal.
// Columns: rsi, macd, macd_signal, ema_fast, ema_slow, bb_upper, bb_lower, atr, volume.
var catalogueRows = []struct {
	x     [9]float64
	label Label
}{
	// BUY: oversold, price expected to rise
	{[9]float64{30.5, -0.0020, -0.0015, 1.0820, 1.0835, 1.0900, 1.0750, 0.0025, 15000}, Buy},
	{[9]float64{28.3, -0.0018, -0.0012, 1.0815, 1.0830, 1.0895, 1.0745, 0.0022, 18000}, Buy},
	{[9]float64{25.7, -0.0025, -0.0020, 1.0810, 1.0828, 1.0890, 1.0740, 0.0028, 20000}, Buy},
	{[9]float64{32.1, -0.0015, -0.0010, 1.0825, 1.0838, 1.0905, 1.0755, 0.0020, 16500}, Buy},
	{[9]float64{27.8, 0.0005, -0.0002, 1.0830, 1.0840, 1.0910, 1.0760, 0.0018, 22000}, Buy},
	{[9]float64{29.4, -0.0010, -0.0008, 1.0818, 1.0832, 1.0898, 1.0748, 0.0023, 17500}, Buy},
	{[9]float64{26.9, -0.0022, -0.0017, 1.0812, 1.0826, 1.0892, 1.0742, 0.0026, 19000}, Buy},
	{[9]float64{31.5, -0.0012, -0.0009, 1.0822, 1.0836, 1.0902, 1.0752, 0.0021, 15500}, Buy},

	// SELL: overbought, price expected to fall
	{[9]float64{72.5, 0.0025, 0.0018, 1.0920, 1.0905, 1.0990, 1.0850, 0.0028, 14000}, Sell},
	{[9]float64{75.3, 0.0030, 0.0022, 1.0935, 1.0915, 1.1005, 1.0865, 0.0030, 12000}, Sell},
	{[9]float64{78.9, 0.0035, 0.0028, 1.0950, 1.0925, 1.1020, 1.0880, 0.0033, 11000}, Sell},
	{[9]float64{70.1, 0.0020, 0.0015, 1.0910, 1.0898, 1.0980, 1.0840, 0.0025, 16000}, Sell},
	{[9]float64{73.8, 0.0028, 0.0021, 1.0925, 1.0910, 1.0995, 1.0855, 0.0029, 13500}, Sell},
	{[9]float64{76.2, 0.0032, 0.0025, 1.0940, 1.0920, 1.1010, 1.0870, 0.0031, 11500}, Sell},
	{[9]float64{71.6, 0.0022, 0.0017, 1.0915, 1.0902, 1.0985, 1.0845, 0.0026, 15000}, Sell},
	{[9]float64{74.9, 0.0029, 0.0023, 1.0930, 1.0912, 1.1000, 1.0860, 0.0030, 13000}, Sell},

	// HOLD: neutral zone
	{[9]float64{50.2, 0.0002, 0.0001, 1.0870, 1.0868, 1.0940, 1.0800, 0.0015, 9000}, Hold},
	{[9]float64{52.8, -0.0003, 0.0002, 1.0872, 1.0870, 1.0942, 1.0802, 0.0016, 8500}, Hold},
	{[9]float64{48.5, 0.0005, -0.0003, 1.0868, 1.0866, 1.0938, 1.0798, 0.0014, 9500}, Hold},
	{[9]float64{51.3, -0.0001, 0.0000, 1.0871, 1.0869, 1.0941, 1.0801, 0.0015, 9200}, Hold},
	{[9]float64{49.7, 0.0003, -0.0001, 1.0869, 1.0867, 1.0939, 1.0799, 0.0015, 8800}, Hold},
	{[9]float64{53.1, -0.0004, 0.0003, 1.0873, 1.0871, 1.0943, 1.0803, 0.0016, 9100}, Hold},
	{[9]float64{47.9, 0.0006, -0.0004, 1.0867, 1.0865, 1.0937, 1.0797, 0.0014, 9700}, Hold},
	{[9]float64{50.8, 0.0001, 0.0001, 1.0870, 1.0868, 1.0940, 1.0800, 0.0015, 9000}, Hold},
}

// Catalogue returns a fresh copy of the fixed training set.
func Catalogue() []TrainingSample {
	samples := make([]TrainingSample, len(catalogueRows))
	for i, row := range catalogueRows {
		x := make([]float64, len(row.x))
		copy(x, row.x[:])
		samples[i] = TrainingSample{Features: x, Label: row.label}
	}
	return samples
}
