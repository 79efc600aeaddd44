package quadr

//go:generate hwygen -input $GOFILE -output . -targets avx2,fallback

import (
	"github.com/ajroetker/go-highway/hwy"
)

// Batch Dot Product / Norm (Mesh Statistics)
// Surface area and edge-length statistics reduce to squared norms over a
// stream of vectors. SoA layout lets the whole face batch go through at once.

// BaseBatchDot computes per-lane dot products of two SoA vector sets.
// dst[i] = ax[i]*bx[i] + ay[i]*by[i] + az[i]*bz[i]
func BaseBatchDot[T hwy.Floats](
	ax, ay, az []T,
	bx, by, bz []T,
	dst []T,
) {
	size := min(len(ax), len(ay), len(az), len(bx), len(by), len(bz), len(dst))

	hwy.ProcessWithTail[T](size,
		func(offset int) {
			vAx := hwy.Load(ax[offset:])
			vAy := hwy.Load(ay[offset:])
			vAz := hwy.Load(az[offset:])
			vBx := hwy.Load(bx[offset:])
			vBy := hwy.Load(by[offset:])
			vBz := hwy.Load(bz[offset:])

			sum := hwy.Mul(vAx, vBx)
			sum = hwy.FMA(vAy, vBy, sum)
			sum = hwy.FMA(vAz, vBz, sum)

			hwy.Store(sum, dst[offset:])
		},
		func(offset, count int) {
			mask := hwy.TailMask[T](count)
			vAx := hwy.MaskLoad(mask, ax[offset:])
			vAy := hwy.MaskLoad(mask, ay[offset:])
			vAz := hwy.MaskLoad(mask, az[offset:])
			vBx := hwy.MaskLoad(mask, bx[offset:])
			vBy := hwy.MaskLoad(mask, by[offset:])
			vBz := hwy.MaskLoad(mask, bz[offset:])

			sum := hwy.Mul(vAx, vBx)
			sum = hwy.FMA(vAy, vBy, sum)
			sum = hwy.FMA(vAz, vBz, sum)

			hwy.MaskStore(mask, sum, dst[offset:])
		},
	)
}
