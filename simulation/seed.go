package simulation

// pathSeed mixes the run seed with the path index (splitmix64) so every path
// owns an independent, reproducible stream whatever worker runs it.
func pathSeed(seed uint64, path int) uint64 {
	z := seed + uint64(path+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
