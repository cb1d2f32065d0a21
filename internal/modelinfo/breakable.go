package modelinfo

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/objectstream/streamer/pkg/core"
)

// breakableModelList holds every object model with a collision damage effect above
// zero, resolved from object.dat names to ids.
var breakableModelList = [...]core.ModelID{
	625, 626, 627, 628, 629, 630, 631, 632, 633, 642, 643, 644, 646, 650, 716, 717, 737, 738, 792, 858, 881, 882, 883, 884, 885, 886, 887, 888, 889, 890, 891,
	892, 893, 894, 895, 904, 905, 941, 955, 956, 959, 961, 990, 993, 996, 1209, 1211, 1213, 1219, 1220, 1221, 1223, 1224, 1225, 1226, 1227, 1228, 1229, 1230,
	1231, 1232, 1235, 1238, 1244, 1251, 1255, 1257, 1262, 1264, 1265, 1270, 1280, 1281, 1282, 1283, 1284, 1285, 1286, 1287, 1288, 1289, 1290, 1291, 1293, 1294,
	1297, 1300, 1302, 1315, 1328, 1329, 1330, 1338, 1350, 1351, 1352, 1370, 1373, 1374, 1375, 1407, 1408, 1409, 1410, 1411, 1412, 1413, 1414, 1415, 1417, 1418,
	1419, 1420, 1421, 1422, 1423, 1424, 1425, 1426, 1428, 1429, 1431, 1432, 1433, 1436, 1437, 1438, 1440, 1441, 1443, 1444, 1445, 1446, 1447, 1448, 1449, 1450,
	1451, 1452, 1456, 1457, 1458, 1459, 1460, 1461, 1462, 1463, 1464, 1465, 1466, 1467, 1468, 1469, 1470, 1471, 1472, 1473, 1474, 1475, 1476, 1477, 1478, 1479,
	1480, 1481, 1482, 1483, 1514, 1517, 1520, 1534, 1543, 1544, 1545, 1551, 1553, 1554, 1558, 1564, 1568, 1582, 1583, 1584, 1588, 1589, 1590, 1591, 1592, 1645,
	1646, 1647, 1654, 1664, 1666, 1667, 1668, 1669, 1670, 1672, 1676, 1684, 1686, 1775, 1776, 1949, 1950, 1951, 1960, 1961, 1962, 1975, 1976, 1977, 2647, 2663,
	2682, 2683, 2885, 2886, 2887, 2900, 2918, 2920, 2925, 2932, 2933, 2942, 2943, 2945, 2947, 2958, 2959, 2966, 2968, 2971, 2977, 2987, 2988, 2989, 2991, 2994,
	3006, 3018, 3019, 3020, 3021, 3022, 3023, 3024, 3029, 3032, 3036, 3058, 3059, 3067, 3083, 3091, 3221, 3260, 3261, 3262, 3263, 3264, 3265, 3267, 3275, 3276,
	3278, 3280, 3281, 3282, 3302, 3374, 3409, 3460, 3516, 3794, 3795, 3797, 3853, 3855, 3864, 3872, 3884, 11103, 12840, 16627, 16628, 16629, 16630, 16631,
	16632, 16633, 16634, 16635, 16636, 16732, 17968,

	// glass
	3859, 3858, 3857, 1649, 3851,
}

// breakableBuilds counts set constructions; tests assert it never exceeds one.
var breakableBuilds atomic.Int32

var breakableSet = sync.OnceValue(func() map[core.ModelID]struct{} {
	breakableBuilds.Add(1)
	set := make(map[core.ModelID]struct{}, len(breakableModelList))
	for _, id := range breakableModelList {
		set[id] = struct{}{}
	}
	return set
})

// IsBreakableModel reports whether objects using id shatter or deform on impact.
func IsBreakableModel(id core.ModelID) bool {
	_, ok := breakableSet()[id]
	return ok
}

// BreakableModels returns the breakable model ids in ascending order.
func BreakableModels() []core.ModelID {
	set := breakableSet()
	ids := make([]core.ModelID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
