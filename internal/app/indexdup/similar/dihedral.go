package similar

import (
	"image"

	"github.com/disintegration/imaging"
)

// dihedralVariants counts the upright orientation plus its seven rotations and flips.
const dihedralVariants = 8

// transforms returns every non-identity rotation and flip of img, in a fixed order.
func transforms(img image.Image) []*image.NRGBA {
	return []*image.NRGBA{
		imaging.Rotate90(img),
		imaging.Rotate180(img),
		imaging.Rotate270(img),
		imaging.FlipH(img),
		imaging.FlipV(img),
		imaging.Transpose(img),
		imaging.Transverse(img),
	}
}

// variantsPerItem is how many MIH ids each image or frame occupies.
func variantsPerItem(dihedral bool) int {
	if dihedral {
		return dihedralVariants
	}
	return 1
}
